package updater

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for update checks
type Handler struct {
	scheduler *Scheduler
	logger    *zap.Logger
}

// NewHandler creates a new updater handler. Manual checks are recorded by
// scheduler alongside the scheduled ones.
func NewHandler(scheduler *Scheduler, logger *zap.Logger) *Handler {
	return &Handler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// RegisterRoutes registers update routes. Callers attach authorization and
// CSRF middleware to router beforehand.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	updates := router.Group("/updates")
	{
		updates.POST("/check", h.checkForUpdates)
		updates.GET("/info", h.getPluginInfo)
		updates.GET("/status", h.getLastCheck)
	}
}

// checkForUpdates handles POST /api/v1/updates/check
func (h *Handler) checkForUpdates(c *gin.Context) {
	result := h.scheduler.Check(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// getPluginInfo handles GET /api/v1/updates/info
func (h *Handler) getPluginInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.Checker().Info(c.Request.Context()))
}

// getLastCheck handles GET /api/v1/updates/status
func (h *Handler) getLastCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.scheduler.Snapshot()})
}
