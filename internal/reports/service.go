package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"woo-customer-orders-report/report-backend/internal/metrics"
	"woo-customer-orders-report/report-backend/internal/reports/cache"
)

// Limits bounds listing pages, exports and the category chart
type Limits struct {
	PerPage         int
	ExportBatchSize int
	ExportMaxRows   int
	TopCategories   int
	// CatalogCacheTTL keeps product and category lookups; 0 disables it
	CatalogCacheTTL time.Duration
}

// DefaultLimits returns the stock limits
func DefaultLimits() Limits {
	return Limits{
		PerPage:         50,
		ExportBatchSize: DefaultExportBatchSize,
		ExportMaxRows:   DefaultExportMaxRows,
		TopCategories:   DefaultTopCategories,
	}
}

// Service provides the customer orders report operations
type Service struct {
	repo     Repository
	builder  *QueryBuilder
	exporter *Exporter
	limits   Limits
	metrics  *metrics.Metrics
	logger   *zap.Logger

	products   *cache.TTLCache[[]Product]
	categories *cache.TTLCache[[]Category]
}

// NewService creates a new reports service
func NewService(repo Repository, limits Limits, m *metrics.Metrics, logger *zap.Logger) *Service {
	if limits.PerPage <= 0 {
		limits.PerPage = DefaultLimits().PerPage
	}
	return &Service{
		repo:     repo,
		builder:  NewQueryBuilder(repo),
		exporter: NewExporter(repo, limits.ExportBatchSize, limits.ExportMaxRows),
		limits:   limits,
		metrics:  m,
		logger:   logger,

		products:   cache.New[[]Product](limits.CatalogCacheTTL),
		categories: cache.New[[]Category](limits.CatalogCacheTTL),
	}
}

// =====================================================
// Report Operations
// =====================================================

// Report builds the analytics over the full filtered set and one page of
// the order listing
func (s *Service) Report(ctx context.Context, req ReportRequest) (*ReportResponse, error) {
	started := time.Now()

	query, err := s.builder.Build(ctx, req.Filters)
	if err != nil {
		s.metrics.ObserveReport("error", started, 0)
		return nil, err
	}

	analytics, scanned, err := s.aggregate(ctx, query)
	if err != nil {
		s.metrics.ObserveReport("error", started, scanned)
		return nil, err
	}

	listing, err := s.listing(ctx, query, req.Page)
	if err != nil {
		s.metrics.ObserveReport("error", started, scanned)
		return nil, err
	}

	s.metrics.ObserveReport("ok", started, scanned)
	s.logger.Info("report built",
		zap.Int("total_orders", analytics.TotalOrders),
		zap.Int("listed", len(listing.Orders)),
		zap.Int("page", listing.Page),
		zap.Duration("elapsed", time.Since(started)),
	)

	return &ReportResponse{
		Filters:   req.Filters,
		Analytics: analytics,
		Listing:   listing,
	}, nil
}

// aggregate walks the candidates oldest first so the date series is
// chronological. Orders are loaded one at a time; the returned count is
// every order loaded, including ones the aggregator skips.
func (s *Service) aggregate(ctx context.Context, query OrderQuery) (*AggregateResult, int, error) {
	ids, err := s.repo.ListOrderIDs(ctx, query, SortOldestFirst, 0, 0)
	if err != nil {
		return nil, 0, err
	}

	agg := NewAggregator(s.limits.TopCategories)
	loaded := 0
	for _, id := range ids {
		order, err := s.repo.GetOrder(ctx, id)
		if errors.Is(err, ErrOrderNotFound) {
			continue
		}
		if err != nil {
			return nil, loaded, err
		}
		loaded++
		agg.Add(order)
	}
	return agg.Result(), loaded, nil
}

func (s *Service) listing(ctx context.Context, query OrderQuery, page int) (*OrderListing, error) {
	if page < 1 {
		page = 1
	}
	perPage := s.limits.PerPage

	total, err := s.repo.CountOrders(ctx, query)
	if err != nil {
		return nil, err
	}

	listing := &OrderListing{
		Orders:     []ListingRow{},
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: (total + perPage - 1) / perPage,
	}
	if total == 0 || (page-1)*perPage >= total {
		return listing, nil
	}

	ids, err := s.repo.ListOrderIDs(ctx, query, SortNewestFirst, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		order, err := s.repo.GetOrder(ctx, id)
		if errors.Is(err, ErrOrderNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		listing.Orders = append(listing.Orders, ListingRow{OrderID: order.ID, ExportRow: BuildExportRow(order)})
	}
	return listing, nil
}

// =====================================================
// Export Operations
// =====================================================

// Export streams the filtered set through the sink opened by open
func (s *Service) Export(ctx context.Context, filters FilterSpec, format ExportFormat, open SinkOpener) (*ExportResult, error) {
	query, err := s.builder.Build(ctx, filters)
	if err != nil {
		s.metrics.ObserveExport(string(format), "error", 0)
		return nil, err
	}

	result, err := s.exporter.Export(ctx, query, open)
	if errors.Is(err, ErrNothingToExport) {
		s.metrics.ObserveExport(string(format), "empty", 0)
		return nil, err
	}
	if err != nil {
		s.metrics.ObserveExport(string(format), "error", 0)
		return nil, fmt.Errorf("export failed: %w", err)
	}

	s.metrics.ObserveExport(string(format), "ok", result.Rows)
	s.logger.Info("orders exported",
		zap.String("format", string(format)),
		zap.Int("rows", result.Rows),
		zap.Bool("truncated", result.Truncated),
	)
	return result, nil
}

// =====================================================
// Catalog Operations
// =====================================================

// ProductOptions lists published products, restricted to categories when
// any are given. Results are cached per category set.
func (s *Service) ProductOptions(ctx context.Context, categoryIDs []int64) ([]Product, error) {
	key := "products:" + FormatIDList(categoryIDs)
	products, err := s.products.GetOrLoad(ctx, key, func(ctx context.Context) ([]Product, error) {
		return s.repo.ListProducts(ctx, categoryIDs)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveProductLookup()
	return products, nil
}

// Categories lists every product category
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	return s.categories.GetOrLoad(ctx, "categories", s.repo.ListCategories)
}

// FlushCatalog drops cached product and category lookups
func (s *Service) FlushCatalog() {
	s.products.Clear()
	s.categories.Clear()
	s.logger.Debug("catalog cache flushed")
}

// CatalogStats reports the product and category cache counters
func (s *Service) CatalogStats() map[string]cache.Stats {
	return map[string]cache.Stats{
		"products":   s.products.Stats(),
		"categories": s.categories.Stats(),
	}
}
