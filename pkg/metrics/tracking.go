package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TrackingMetrics records order status polling.
type TrackingMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	stage    *prometheus.CounterVec
	active   prometheus.Gauge
}

// NewTrackingMetrics registers the tracker metrics on the provided registerer.
func NewTrackingMetrics(reg prometheus.Registerer) *TrackingMetrics {
	if reg == nil {
		return &TrackingMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracking_poll_duration_seconds",
		Help:    "Duration of order status polls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"delivery_mode"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_poll_success",
		Help: "Successful order status polls.",
	}, []string{"delivery_mode"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_poll_failure",
		Help: "Failed order status polls.",
	}, []string{"delivery_mode"})
	stage := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_stage_transitions",
		Help: "Progress stage changes observed by trackers.",
	}, []string{"delivery_mode", "stage"})
	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracking_active_pollers",
		Help: "Poll loops currently running.",
	})
	reg.MustRegister(duration, success, failure, stage, active)
	return &TrackingMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		stage:    stage,
		active:   active,
	}
}

// ObservePoll records the duration and outcome of one poll.
func (t *TrackingMetrics) ObservePoll(mode string, duration time.Duration, err error) {
	if t == nil || t.duration == nil {
		return
	}
	mode = normalizeLabel(mode)
	t.duration.WithLabelValues(mode).Observe(duration.Seconds())
	if err != nil {
		t.failure.WithLabelValues(mode).Inc()
		return
	}
	t.success.WithLabelValues(mode).Inc()
}

// IncStage counts a transition into stage.
func (t *TrackingMetrics) IncStage(mode, stage string) {
	if t == nil || t.stage == nil {
		return
	}
	t.stage.WithLabelValues(normalizeLabel(mode), normalizeLabel(stage)).Inc()
}

// PollerStarted and PollerStopped keep the active loop gauge current.
func (t *TrackingMetrics) PollerStarted() {
	if t == nil || t.active == nil {
		return
	}
	t.active.Inc()
}

func (t *TrackingMetrics) PollerStopped() {
	if t == nil || t.active == nil {
		return
	}
	t.active.Dec()
}
