package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

func TestSettlementMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSettlementMetrics(reg)

	m.Observe("commit_sale", time.Now().Add(-250*time.Millisecond), nil)
	m.Observe("commit_sale", time.Now(), pkgerrors.InsufficientStock("p-1", "3", "5"))
	m.IncMovements("sale", 3)
	m.IncOutbox("sale_committed", "published")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "tillbook_settlement_operations_total", map[string]string{"operation": "commit_sale", "outcome": "ok"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), got)

	got, err = fetchCounterValue(mfs, "tillbook_settlement_operations_total", map[string]string{"operation": "commit_sale", "outcome": "insufficient_stock"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), got)

	got, err = fetchCounterValue(mfs, "tillbook_stock_movements_total", map[string]string{"type": "sale"})
	require.NoError(t, err)
	assert.Equal(t, float64(3), got)

	got, err = fetchCounterValue(mfs, "tillbook_outbox_events_total", map[string]string{"event_type": "sale_committed", "result": "published"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), got)

	sum, err := fetchHistogramSum(mfs, "tillbook_settlement_duration_seconds", map[string]string{"operation": "commit_sale"})
	require.NoError(t, err)
	assert.Greater(t, sum, 0.0)
}

func TestNilRegistererDropsSamples(t *testing.T) {
	m := NewSettlementMetrics(nil)
	assert.NotPanics(t, func() {
		m.Observe("apply_payment", time.Now(), nil)
		m.IncMovements("sale", 1)
		m.IncOutbox("sale_committed", "published")
	})

	var nilMetrics *SettlementMetrics
	assert.NotPanics(t, func() { nilMetrics.Observe("x", time.Now(), nil) })
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "overpayment_exceeds_outstanding", Outcome(pkgerrors.New(pkgerrors.CodeOverpayment, "too much")))
	assert.Equal(t, "internal_error", Outcome(errors.New("plain")))
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
