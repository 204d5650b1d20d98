// Package metrics provides Prometheus recording and querying for journey
// operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder records journey metrics. It satisfies the
// progression engine's Recorder interface.
type PrometheusRecorder struct {
	transitionsTotal   *prometheus.CounterVec
	togglesTotal       *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a Prometheus-based journey recorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		transitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journey_transitions_total",
				Help: "Total number of stage transition attempts by direction and status",
			},
			[]string{"direction", "status"},
		),
		togglesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journey_criteria_toggles_total",
				Help: "Total number of completion criterion toggles by value",
			},
			[]string{"value"},
		),
		transitionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "journey_transition_duration_seconds",
				Help:    "Duration of stage transition attempts including persistence",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"direction"},
		),
	}
}

// ObserveTransition records one transition attempt.
func (p *PrometheusRecorder) ObserveTransition(direction, status string, elapsed time.Duration) {
	p.transitionsTotal.WithLabelValues(direction, status).Inc()
	p.transitionDuration.WithLabelValues(direction).Observe(elapsed.Seconds())
}

// ObserveToggle records one criterion toggle.
func (p *PrometheusRecorder) ObserveToggle(completed bool) {
	value := "unchecked"
	if completed {
		value = "checked"
	}
	p.togglesTotal.WithLabelValues(value).Inc()
}
