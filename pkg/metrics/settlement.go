package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

const outcomeOK = "ok"

// SettlementMetrics records settlement engine activity.
type SettlementMetrics struct {
	duration  *prometheus.HistogramVec
	outcomes  *prometheus.CounterVec
	movements *prometheus.CounterVec
	outbox    *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics on the provided
// registerer. A nil registerer yields a recorder that drops every sample.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tillbook",
		Name:      "settlement_duration_seconds",
		Help:      "Duration of settlement operations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tillbook",
		Name:      "settlement_operations_total",
		Help:      "Settlement operations by outcome (ok or error code).",
	}, []string{"operation", "outcome"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tillbook",
		Name:      "stock_movements_total",
		Help:      "Stock movement log rows written, by movement type.",
	}, []string{"type"})
	outbox := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tillbook",
		Name:      "outbox_events_total",
		Help:      "Outbox relay results by event type.",
	}, []string{"event_type", "result"})
	reg.MustRegister(duration, outcomes, movements, outbox)
	return &SettlementMetrics{
		duration:  duration,
		outcomes:  outcomes,
		movements: movements,
		outbox:    outbox,
	}
}

// Observe records the duration and outcome of one operation started at start.
func (m *SettlementMetrics) Observe(operation string, start time.Time, err error) {
	if m == nil || m.duration == nil {
		return
	}
	op := normalizeLabel(operation)
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	m.outcomes.WithLabelValues(op, Outcome(err)).Inc()
}

// IncMovements counts n ledger rows of the given movement type.
func (m *SettlementMetrics) IncMovements(movementType string, n int) {
	if m == nil || m.movements == nil || n <= 0 {
		return
	}
	m.movements.WithLabelValues(normalizeLabel(movementType)).Add(float64(n))
}

// IncOutbox counts one relay result: published, retry, held or dead_lettered.
func (m *SettlementMetrics) IncOutbox(eventType, result string) {
	if m == nil || m.outbox == nil {
		return
	}
	m.outbox.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

// Outcome maps an operation error to a low-cardinality label.
func Outcome(err error) string {
	if err == nil {
		return outcomeOK
	}
	if appErr := pkgerrors.As(err); appErr != nil {
		return strings.ToLower(string(appErr.Code()))
	}
	return strings.ToLower(string(pkgerrors.CodeInternal))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
