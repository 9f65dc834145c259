package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"woo-customer-orders-report/report-backend/internal/auth"
	"woo-customer-orders-report/report-backend/internal/config"
	"woo-customer-orders-report/report-backend/internal/metrics"
	"woo-customer-orders-report/report-backend/internal/reports"
)

// ReportsAPI holds the reports API dependencies
type ReportsAPI struct {
	Handler    *reports.Handler
	Service    *reports.Service
	Repository reports.Repository
}

// SetupReportsAPI sets up the reports API with all dependencies
func SetupReportsAPI(db *sqlx.DB, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) (*ReportsAPI, error) {
	// Create repository
	repository := reports.NewSQLRepository(db, cfg.Database.TablePrefix)

	// Create service
	service := reports.NewService(repository, ReportLimits(cfg.Report), m, logger)

	// Create handler
	handler := reports.NewHandler(service, logger)

	return &ReportsAPI{
		Handler:    handler,
		Service:    service,
		Repository: repository,
	}, nil
}

// ReportLimits maps the report config section onto service limits
func ReportLimits(rc config.ReportConfig) reports.Limits {
	return reports.Limits{
		PerPage:         rc.PerPage,
		ExportBatchSize: rc.ExportBatchSize,
		ExportMaxRows:   rc.ExportMaxRows,
		TopCategories:   rc.TopCategories,
		CatalogCacheTTL: rc.CatalogCacheTTL.Duration,
	}
}

// RegisterReportsRoutes registers the reports routes behind the
// manage_woocommerce capability and CSRF checks
func RegisterReportsRoutes(router *gin.RouterGroup, api *ReportsAPI, mw *auth.Middleware) {
	guarded := router.Group("",
		mw.RequireCapability(auth.CapabilityManageWooCommerce),
		mw.RequireCSRF(),
	)
	api.Handler.RegisterRoutes(guarded)
}
