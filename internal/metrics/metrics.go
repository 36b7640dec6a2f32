// Package metrics owns the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/feedback-analytics/internal/attendance"
)

const namespace = "feedback"

// Metrics groups the collectors on a private registry so tests can construct
// as many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	taps          *prometheus.CounterVec
	tapRejections *prometheus.CounterVec
	verifications *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
}

var _ attendance.Observer = (*Metrics)(nil)

// New registers every collector, plus the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		taps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attendance",
			Name:      "taps_total",
			Help:      "Accepted RFID taps by resulting transition.",
		}, []string{"transition"}),
		tapRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attendance",
			Name:      "tap_rejections_total",
			Help:      "Rejected RFID taps by reason.",
		}, []string{"reason"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_verifications_total",
			Help:      "Feedback token verifications by outcome.",
		}, []string{"outcome"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Latency of feedback response queries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.taps,
		m.tapRejections,
		m.verifications,
		m.queryDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// TapRecorded implements attendance.Observer.
func (m *Metrics) TapRecorded(transition attendance.Transition) {
	m.taps.WithLabelValues(string(transition)).Inc()
}

// TapRejected implements attendance.Observer.
func (m *Metrics) TapRejected(reason string) {
	m.tapRejections.WithLabelValues(reason).Inc()
}

// TokenVerified counts a verification outcome.
func (m *Metrics) TokenVerified(outcome string) {
	m.verifications.WithLabelValues(outcome).Inc()
}

// QueryObserved records the duration of a feedback query.
func (m *Metrics) QueryObserved(outcome string, elapsed time.Duration) {
	m.queryDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
