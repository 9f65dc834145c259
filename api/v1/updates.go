package v1

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"woo-customer-orders-report/report-backend/internal/auth"
	"woo-customer-orders-report/report-backend/internal/config"
	"woo-customer-orders-report/report-backend/internal/metrics"
	"woo-customer-orders-report/report-backend/internal/updater"
)

// UpdatesAPI holds the update checker API dependencies
type UpdatesAPI struct {
	Handler   *updater.Handler
	Checker   *updater.Checker
	Scheduler *updater.Scheduler
}

// SetupUpdatesAPI sets up the update checker API. The scheduler is returned
// stopped; the caller decides whether to start it.
func SetupUpdatesAPI(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) (*UpdatesAPI, error) {
	checker := updater.NewChecker(CheckerConfig(cfg.Updater), nil, m, logger)
	scheduler, err := updater.NewScheduler(checker, cfg.Updater.CheckSchedule, logger)
	if err != nil {
		return nil, err
	}
	return &UpdatesAPI{
		Handler:   updater.NewHandler(scheduler, logger),
		Checker:   checker,
		Scheduler: scheduler,
	}, nil
}

// CheckerConfig maps the updater config section onto the checker
func CheckerConfig(uc config.UpdaterConfig) updater.Config {
	return updater.Config{
		APIBaseURL:     uc.APIBaseURL,
		Owner:          uc.Owner,
		Repo:           uc.Repo,
		PluginName:     uc.PluginName,
		CurrentVersion: uc.CurrentVersion,
		Token:          uc.Token,
		Timeout:        uc.Timeout.Duration,
	}
}

// RegisterUpdatesRoutes registers the update routes behind the
// update_plugins capability and CSRF checks
func RegisterUpdatesRoutes(router *gin.RouterGroup, api *UpdatesAPI, mw *auth.Middleware) {
	guarded := router.Group("",
		mw.RequireCapability(auth.CapabilityUpdatePlugins),
		mw.RequireCSRF(),
	)
	api.Handler.RegisterRoutes(guarded)
}
