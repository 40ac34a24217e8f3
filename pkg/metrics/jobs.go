package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records maintenance job runs and the gauges they refresh.
type JobMetrics struct {
	duration    *prometheus.HistogramVec
	success     *prometheus.CounterVec
	failure     *prometheus.CounterVec
	receivables *prometheus.GaugeVec
	drift       prometheus.Gauge
}

// NewJobMetrics registers the maintenance job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tillbook",
		Name:      "job_duration_seconds",
		Help:      "Duration of maintenance jobs in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tillbook",
		Name:      "job_success_total",
		Help:      "Successful maintenance job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tillbook",
		Name:      "job_failure_total",
		Help:      "Failed maintenance job executions.",
	}, []string{"job"})
	receivables := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tillbook",
		Name:      "receivables_outstanding",
		Help:      "Outstanding credit balance by aging bucket at the last sweep.",
	}, []string{"aging"})
	drift := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tillbook",
		Name:      "stock_drift_products",
		Help:      "Products whose stock disagreed with their ledger at the last sweep.",
	})
	reg.MustRegister(duration, success, failure, receivables, drift)
	return &JobMetrics{
		duration:    duration,
		success:     success,
		failure:     failure,
		receivables: receivables,
		drift:       drift,
	}
}

// ObserveDuration records the duration for the named job.
func (j *JobMetrics) ObserveDuration(job string, duration time.Duration) {
	if j == nil || j.duration == nil {
		return
	}
	j.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

func (j *JobMetrics) IncSuccess(job string) {
	if j == nil || j.success == nil {
		return
	}
	j.success.WithLabelValues(normalizeLabel(job)).Inc()
}

func (j *JobMetrics) IncFailure(job string) {
	if j == nil || j.failure == nil {
		return
	}
	j.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// SetReceivables replaces the outstanding balance of one aging bucket.
func (j *JobMetrics) SetReceivables(aging string, amount float64) {
	if j == nil || j.receivables == nil {
		return
	}
	j.receivables.WithLabelValues(normalizeLabel(aging)).Set(amount)
}

func (j *JobMetrics) SetStockDrift(products int) {
	if j == nil || j.drift == nil {
		return
	}
	j.drift.Set(float64(products))
}
