package retry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds prometheus collectors for retry activity, labelled by
// policy name. A nil *Metrics records nothing.
type Metrics struct {
	retries   *prometheus.CounterVec
	exhausted *prometheus.CounterVec
	backoff   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when reg
// is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "awsbridge_retry_attempts_total",
			Help: "Total number of retries scheduled by policy",
		}, []string{"policy"}),
		exhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "awsbridge_retry_exhausted_total",
			Help: "Total number of times a retry schedule ran out by policy",
		}, []string{"policy"}),
		backoff: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "awsbridge_retry_backoff_seconds",
			Help:    "Wait before each retry by policy",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"policy"}),
	}

	if reg != nil {
		reg.MustRegister(m.retries, m.exhausted, m.backoff)
	}
	return m
}

func (m *Metrics) observeRetry(policy string, delay time.Duration) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(policy).Inc()
	m.backoff.WithLabelValues(policy).Observe(delay.Seconds())
}

func (m *Metrics) observeExhausted(policy string) {
	if m == nil {
		return
	}
	m.exhausted.WithLabelValues(policy).Inc()
}
