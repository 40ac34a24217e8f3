package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobMetricsExportsCountersAndGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)

	m.ObserveDuration("stock-reconcile", 150*time.Millisecond)
	m.IncSuccess("stock-reconcile")
	m.IncFailure("outbox-retention")
	m.SetReceivables("overdue", 120.5)
	m.SetStockDrift(2)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "tillbook_job_success_total", map[string]string{"job": "stock-reconcile"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), got)

	got, err = fetchCounterValue(mfs, "tillbook_job_failure_total", map[string]string{"job": "outbox-retention"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), got)

	sum, err := fetchHistogramSum(mfs, "tillbook_job_duration_seconds", map[string]string{"job": "stock-reconcile"})
	require.NoError(t, err)
	assert.InDelta(t, 0.15, sum, 1e-9)

	receivables := findMetricFamily(mfs, "tillbook_receivables_outstanding")
	require.NotNil(t, receivables)
	require.Len(t, receivables.GetMetric(), 1)
	assert.Equal(t, 120.5, receivables.GetMetric()[0].GetGauge().GetValue())

	drift := findMetricFamily(mfs, "tillbook_stock_drift_products")
	require.NotNil(t, drift)
	assert.Equal(t, float64(2), drift.GetMetric()[0].GetGauge().GetValue())
}

func TestNilJobMetricsIsSafe(t *testing.T) {
	var m *JobMetrics
	assert.NotPanics(t, func() {
		m.IncSuccess("x")
		m.SetReceivables("overdue", 1)
		m.SetStockDrift(1)
	})
	assert.NotPanics(t, func() { NewJobMetrics(nil).ObserveDuration("x", time.Second) })
}
