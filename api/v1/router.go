package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"woo-customer-orders-report/report-backend/internal/auth"
	"woo-customer-orders-report/report-backend/internal/config"
	"woo-customer-orders-report/report-backend/internal/metrics"
)

// RequestIDHeader carries the per-request id
const RequestIDHeader = "X-Request-ID"

// Router is the HTTP engine plus the background parts the caller starts
type Router struct {
	*gin.Engine
	Updates *UpdatesAPI
}

// NewRouter builds the HTTP router with every API mounted under /api/v1
func NewRouter(cfg *config.Config, db *sqlx.DB, reg *prometheus.Registry, logger *zap.Logger) (*Router, error) {
	m := metrics.New(reg)
	mw := auth.NewMiddleware(cfg.Security.JWTSecret, cfg.Security.CSRFCookieName, cfg.Security.SecureCookies, logger)

	reportsAPI, err := SetupReportsAPI(db, cfg, m, logger)
	if err != nil {
		return nil, err
	}
	updatesAPI, err := SetupUpdatesAPI(cfg, m, logger)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(logger))

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Export-Truncated, X-Export-Error, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Register Routes
	api := router.Group("/api/v1")
	{
		auth.RegisterRoutes(api, auth.NewHandler(mw))
		RegisterReportsRoutes(api, reportsAPI, mw)
		RegisterUpdatesRoutes(api, updatesAPI, mw)
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"status": "healthy", "timestamp": time.Now()}
		if db != nil {
			if err := db.PingContext(c.Request.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "unhealthy"
				body["error"] = "database unreachable"
			}
		}
		c.JSON(status, body)
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	return &Router{Engine: router, Updates: updatesAPI}, nil
}

// RequestID tags every request with an id, reusing the caller's when given
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs each request once it completes
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("HTTP request",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
