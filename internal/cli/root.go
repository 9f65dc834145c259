package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"woo-customer-orders-report/report-backend/internal/config"
	"woo-customer-orders-report/report-backend/internal/logging"
)

var version = "dev"

// Execute runs the CLI and returns the process exit code
func Execute() int {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	output     string
}

// NewRootCmd builds the orders-report command tree
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "orders-report",
		Short:         "WooCommerce customer orders report tools",
		Long:          "Exports the customer orders report and checks for plugin updates using the report service configuration.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.output {
			case "table", "json":
				return nil
			default:
				return fmt.Errorf("unsupported output %q (want table or json)", opts.output)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "config.json", "Path to the JSON config file")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "Output format: table or json")

	rootCmd.AddCommand(
		newExportCmd(opts),
		newCheckUpdateCmd(opts),
		newTokenCmd(opts),
		newVersionCmd(opts),
	)

	return rootCmd
}

// load reads the config and builds a logger writing to stderr
func (o *globalOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.output == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{"version": version})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "orders-report version %s\n", version)
			return nil
		},
	}
}
