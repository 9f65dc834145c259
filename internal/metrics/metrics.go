package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the report service collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	ReportsTotal   *prometheus.CounterVec
	ReportLatency  prometheus.Histogram
	OrdersScanned  prometheus.Counter
	ExportsTotal   *prometheus.CounterVec
	ExportRows     prometheus.Counter
	UpdateChecks   *prometheus.CounterVec
	ProductLookups prometheus.Counter
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ReportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_report_requests_total",
			Help: "Total report requests by outcome",
		}, []string{"outcome"}),

		ReportLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "orders_report_latency_seconds",
			Help:    "Time to build a report",
			Buckets: prometheus.DefBuckets,
		}),

		OrdersScanned: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_report_orders_scanned_total",
			Help: "Orders loaded for aggregation",
		}),

		ExportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_report_exports_total",
			Help: "Total exports by format and outcome",
		}, []string{"format", "outcome"}),

		ExportRows: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_report_export_rows_total",
			Help: "Rows written by exports",
		}),

		UpdateChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_report_update_checks_total",
			Help: "Update checks by resulting status",
		}, []string{"status"}),

		ProductLookups: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_report_product_lookups_total",
			Help: "Product option lookups served",
		}),
	}
}

// ObserveReport records one report request
func (m *Metrics) ObserveReport(outcome string, started time.Time, orders int) {
	if m == nil {
		return
	}
	m.ReportsTotal.WithLabelValues(outcome).Inc()
	m.ReportLatency.Observe(time.Since(started).Seconds())
	m.OrdersScanned.Add(float64(orders))
}

// ObserveExport records one export
func (m *Metrics) ObserveExport(format, outcome string, rows int) {
	if m == nil {
		return
	}
	m.ExportsTotal.WithLabelValues(format, outcome).Inc()
	m.ExportRows.Add(float64(rows))
}

// ObserveUpdateCheck records the status an update check ended in
func (m *Metrics) ObserveUpdateCheck(status string) {
	if m == nil {
		return
	}
	m.UpdateChecks.WithLabelValues(status).Inc()
}

// ObserveProductLookup records one product options lookup
func (m *Metrics) ObserveProductLookup() {
	if m == nil {
		return
	}
	m.ProductLookups.Inc()
}
