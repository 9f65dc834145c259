package cli

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	v1 "woo-customer-orders-report/report-backend/api/v1"
	"woo-customer-orders-report/report-backend/internal/database"
	"woo-customer-orders-report/report-backend/internal/metrics"
	"woo-customer-orders-report/report-backend/internal/reports"
	"woo-customer-orders-report/report-backend/internal/reports/export"
)

func newExportCmd(opts *globalOptions) *cobra.Command {
	var (
		dateFrom   string
		dateTo     string
		categories string
		products   string
		format     string
		out        string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the filtered customer orders to a file",
		Long:  "Runs the same filtered export as the report endpoint and writes it to a CSV, XLSX or PDF file. No file is created when nothing matches.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			params := url.Values{}
			params.Set("date_from", dateFrom)
			params.Set("date_to", dateTo)
			params.Set("categories", categories)
			params.Set("products", products)
			params.Set("export_format", format)
			req := reports.ParseReportRequest(params)

			exportFormat := export.Format(req.ExportFormat)
			if out == "" {
				out = exportFormat.Filename(time.Now())
			}

			db, err := database.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := reports.NewSQLRepository(db, cfg.Database.TablePrefix)
			service := reports.NewService(repo, v1.ReportLimits(cfg.Report), metrics.New(prometheus.NewRegistry()), logger)

			sink := newFileSink(out, exportFormat)
			result, err := service.Export(cmd.Context(), req.Filters, req.ExportFormat, sink.open)
			if err != nil {
				if discardErr := sink.discard(); discardErr != nil {
					logger.Warn("Failed to remove partial export", zap.String("path", out), zap.Error(discardErr))
				}
			} else {
				err = sink.close()
			}
			if errors.Is(err, reports.ErrNothingToExport) {
				return errors.New("no data to export")
			}
			if err != nil {
				return err
			}

			if opts.output == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"path":      out,
					"rows":      result.Rows,
					"truncated": result.Truncated,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d orders to %s\n", result.Rows, out)
			if result.Truncated {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Export stopped at the %d row limit\n", result.Rows)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dateFrom, "date-from", "", "First purchase day, YYYY-MM-DD")
	cmd.Flags().StringVar(&dateTo, "date-to", "", "Last purchase day, YYYY-MM-DD")
	cmd.Flags().StringVar(&categories, "categories", "", "Product category ids joined by +")
	cmd.Flags().StringVar(&products, "products", "", "Product ids joined by +")
	cmd.Flags().StringVar(&format, "format", "csv", "File format: csv, xlsx or pdf")
	cmd.Flags().StringVar(&out, "out", "", "Output path (default customer-orders-report-<timestamp>.<ext>)")

	return cmd
}

// fileSink creates the output file only when the first row arrives
type fileSink struct {
	path   string
	format export.Format
	file   *os.File
}

func newFileSink(path string, format export.Format) *fileSink {
	return &fileSink{path: path, format: format}
}

func (s *fileSink) open() (export.RowWriter, error) {
	f, err := os.Create(s.path)
	if err != nil {
		return nil, err
	}
	s.file = f
	return export.NewRowWriter(s.format, f)
}

func (s *fileSink) close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

// discard closes and removes a file left behind by a failed export
func (s *fileSink) discard() error {
	if s.file == nil {
		return nil
	}
	_ = s.file.Close()
	s.file = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
