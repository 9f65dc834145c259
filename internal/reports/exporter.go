package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"woo-customer-orders-report/report-backend/internal/reports/export"
)

// Defaults for the export walk
const (
	DefaultExportBatchSize = 100
	DefaultExportMaxRows   = 5000
)

// SinkOpener creates the encoder for an export. It is called once, when the
// first row is ready, so an empty export never starts a file.
type SinkOpener func() (export.RowWriter, error)

// Exporter walks the filtered order set in batches and streams rows
type Exporter struct {
	repo      Repository
	batchSize int
	maxRows   int
}

// NewExporter creates an exporter; non-positive limits fall back to defaults
func NewExporter(repo Repository, batchSize, maxRows int) *Exporter {
	if batchSize <= 0 {
		batchSize = DefaultExportBatchSize
	}
	if maxRows <= 0 {
		maxRows = DefaultExportMaxRows
	}
	return &Exporter{repo: repo, batchSize: batchSize, maxRows: maxRows}
}

// Export writes every order matching query, newest first, stopping at the
// row cap. It returns ErrNothingToExport when no row was produced.
func (e *Exporter) Export(ctx context.Context, query OrderQuery, open SinkOpener) (*ExportResult, error) {
	var (
		sink   export.RowWriter
		result ExportResult
		offset int
	)

	// any return without a finished sink discards the partial document
	defer func() {
		if sink != nil {
			_ = sink.Abort()
		}
	}()

walk:
	for {
		ids, err := e.repo.ListOrderIDs(ctx, query, SortNewestFirst, e.batchSize, offset)
		if err != nil {
			return nil, err
		}

		for _, id := range ids {
			if result.Rows >= e.maxRows {
				result.Truncated = true
				break walk
			}

			order, err := e.repo.GetOrder(ctx, id)
			if errors.Is(err, ErrOrderNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}

			if sink == nil {
				if sink, err = open(); err != nil {
					sink = nil
					return nil, fmt.Errorf("failed to open export: %w", err)
				}
				if err := sink.WriteHeader(ExportColumns); err != nil {
					return nil, err
				}
			}

			if err := sink.WriteRow(BuildExportRow(order).Record()); err != nil {
				return nil, err
			}
			result.Rows++
		}

		if len(ids) < e.batchSize {
			break
		}
		offset += e.batchSize
	}

	if result.Rows == 0 {
		return nil, ErrNothingToExport
	}
	err := sink.Close()
	sink = nil
	if err != nil {
		return nil, fmt.Errorf("failed to finish export: %w", err)
	}
	return &result, nil
}

// BuildExportRow flattens an order into its human-readable row. Category
// and product names are deduplicated in first-seen order; items whose
// product was deleted contribute nothing.
func BuildExportRow(order *OrderRecord) ExportRow {
	var products, categories []string
	seenProducts := make(map[string]struct{})
	seenCategories := make(map[string]struct{})

	for _, item := range order.LineItems {
		if !item.ProductExists {
			continue
		}
		if _, ok := seenProducts[item.ProductName]; !ok {
			seenProducts[item.ProductName] = struct{}{}
			products = append(products, item.ProductName)
		}
		for _, c := range item.Categories {
			if _, ok := seenCategories[c.Name]; !ok {
				seenCategories[c.Name] = struct{}{}
				categories = append(categories, c.Name)
			}
		}
	}

	return ExportRow{
		CustomerName:  order.BillingName(),
		CustomerEmail: order.BillingEmail,
		OrderNumber:   order.Number,
		PurchaseDate:  order.CreatedAt.Format(PurchaseDateLayout),
		Categories:    strings.Join(categories, ", "),
		Products:      strings.Join(products, ", "),
	}
}
