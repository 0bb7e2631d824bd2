package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Submission outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
)

// CheckoutMetrics records order submissions.
type CheckoutMetrics struct {
	duration    *prometheus.HistogramVec
	submissions *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_submit_duration_seconds",
		Help:    "Duration of order submissions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"delivery_mode"})
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_submissions_total",
		Help: "Order submissions by delivery mode, payment method and outcome.",
	}, []string{"delivery_mode", "payment_method", "outcome"})
	reg.MustRegister(duration, submissions)
	return &CheckoutMetrics{
		duration:    duration,
		submissions: submissions,
	}
}

// ObserveSubmit records one submission attempt.
func (c *CheckoutMetrics) ObserveSubmit(mode, method, outcome string, duration time.Duration) {
	if c == nil || c.submissions == nil {
		return
	}
	c.submissions.WithLabelValues(normalizeLabel(mode), normalizeLabel(method), normalizeLabel(outcome)).Inc()
	if duration > 0 {
		c.duration.WithLabelValues(normalizeLabel(mode)).Observe(duration.Seconds())
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
