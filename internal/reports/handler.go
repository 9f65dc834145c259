package reports

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"woo-customer-orders-report/report-backend/internal/reports/export"
)

// Export trailers. They are sent after the streamed body: TruncatedTrailer
// is "true" when the export stopped at the row cap, ErrorTrailer carries a
// message when the export failed after part of the file was sent. A body
// followed by ErrorTrailer is incomplete.
const (
	TruncatedTrailer = "X-Export-Truncated"
	ErrorTrailer     = "X-Export-Error"
)

// Handler handles HTTP requests for the orders report
type Handler struct {
	service *Service
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler creates a new reports handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		now:     time.Now,
	}
}

// RegisterRoutes registers report routes. Callers attach authorization and
// CSRF middleware to router beforehand.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/reports")
	{
		reports.GET("/orders", h.getOrdersReport)
		reports.GET("/orders/export", h.exportOrders)

		// Filter UI lookups
		reports.GET("/categories", h.listCategories)
		reports.POST("/products", h.productOptions)
	}
}

// =====================================================
// Report Endpoints
// =====================================================

// getOrdersReport handles GET /api/v1/reports/orders
func (h *Handler) getOrdersReport(c *gin.Context) {
	req := ParseReportRequest(c.Request.URL.Query())
	if req.Export {
		h.streamExport(c, req)
		return
	}

	response, err := h.service.Report(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("Failed to build orders report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// exportOrders handles GET /api/v1/reports/orders/export
func (h *Handler) exportOrders(c *gin.Context) {
	req := ParseReportRequest(c.Request.URL.Query())
	h.streamExport(c, req)
}

func (h *Handler) streamExport(c *gin.Context, req ReportRequest) {
	format := export.Format(req.ExportFormat)
	filename := format.Filename(h.now())

	open := func() (export.RowWriter, error) {
		c.Header("Content-Type", format.ContentType())
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Header("Trailer", TruncatedTrailer+", "+ErrorTrailer)
		c.Status(http.StatusOK)
		return export.NewRowWriter(format, c.Writer)
	}

	result, err := h.service.Export(c.Request.Context(), req.Filters, req.ExportFormat, open)
	switch {
	case errors.Is(err, ErrNothingToExport):
		c.JSON(http.StatusNotFound, gin.H{"error": "No data to export"})
		return
	case err != nil:
		h.logger.Error("Failed to export orders", zap.Error(err), zap.String("format", string(format)))
		if c.Writer.Written() {
			// part of the file is already on the wire
			c.Writer.Header().Set(ErrorTrailer, "failed to export orders")
			c.Abort()
			return
		}
		for _, key := range []string{"Content-Type", "Content-Disposition", "Trailer"} {
			c.Writer.Header().Del(key)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export orders"})
		return
	}

	if result.Truncated {
		c.Writer.Header().Set(TruncatedTrailer, "true")
	}
}

// =====================================================
// Lookup Endpoints
// =====================================================

// listCategories handles GET /api/v1/reports/categories
func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list categories"})
		return
	}
	if categories == nil {
		categories = []Category{}
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// productOptions handles POST /api/v1/reports/products
func (h *Handler) productOptions(c *gin.Context) {
	categoryIDs := h.getIDListParam(c, "categories")

	products, err := h.service.ProductOptions(c.Request.Context(), categoryIDs)
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err), zap.Int64s("categories", categoryIDs))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to list products"})
		return
	}

	var fragment strings.Builder
	if err := RenderProductOptions(&fragment, products); err != nil {
		h.logger.Error("Failed to render product options", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to render products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": fragment.String()})
}

// =====================================================
// Helper Methods
// =====================================================

// getIDListParam collects ids posted as name[] values, repeated name
// values or a single "+"-joined list
func (h *Handler) getIDListParam(c *gin.Context, name string) []int64 {
	raw := append(c.PostFormArray(name+"[]"), c.PostFormArray(name)...)

	seen := make(map[int64]struct{}, len(raw))
	var ids []int64
	for _, value := range raw {
		for _, id := range parseIDList(value) {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
