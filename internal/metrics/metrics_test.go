package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Observe(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveReport("ok", time.Now(), 3)
	m.ObserveExport("csv", "ok", 12)
	m.ObserveExport("csv", "empty", 0)
	m.ObserveUpdateCheck("update_available")
	m.ObserveProductLookup()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsTotal.WithLabelValues("ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.OrdersScanned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExportsTotal.WithLabelValues("csv", "empty")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.ExportRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpdateChecks.WithLabelValues("update_available")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProductLookups))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveReport("ok", time.Now(), 1)
		m.ObserveExport("pdf", "ok", 1)
		m.ObserveUpdateCheck("unknown")
		m.ObserveProductLookup()
	})
}
