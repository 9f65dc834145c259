package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	v1 "woo-customer-orders-report/report-backend/api/v1"
	"woo-customer-orders-report/report-backend/internal/auth"
	"woo-customer-orders-report/report-backend/internal/metrics"
	"woo-customer-orders-report/report-backend/internal/updater"
)

func newCheckUpdateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-update",
		Short: "Check the release feed for a newer version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			checker := updater.NewChecker(v1.CheckerConfig(cfg.Updater), nil, metrics.New(prometheus.NewRegistry()), logger)
			result := checker.Check(cmd.Context())

			if opts.output == "json" {
				return printJSON(cmd.OutOrStdout(), result)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (status: %s)\n", result.Message, result.Status)
			return nil
		},
	}
}

func newTokenCmd(opts *globalOptions) *cobra.Command {
	var (
		subject      string
		capabilities []string
		ttl          time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the report API",
		Long:  "Signs a token with the configured JWT secret granting the given capabilities.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cfg.Security.JWTSecret == "" {
				return fmt.Errorf("security.jwt_secret (JWT_SECRET) must be set")
			}

			mw := auth.NewMiddleware(cfg.Security.JWTSecret, cfg.Security.CSRFCookieName, cfg.Security.SecureCookies, logger)
			token, err := mw.IssueToken(subject, capabilities, ttl)
			if err != nil {
				return err
			}

			if opts.output == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"token":        token,
					"subject":      subject,
					"capabilities": capabilities,
					"expires_in":   ttl.String(),
				})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "admin", "Token subject")
	cmd.Flags().StringSliceVar(&capabilities, "caps",
		[]string{auth.CapabilityManageWooCommerce, auth.CapabilityUpdatePlugins},
		"Capabilities to grant ("+strings.Join([]string{auth.CapabilityManageWooCommerce, auth.CapabilityUpdatePlugins}, ", ")+")")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")

	return cmd
}
