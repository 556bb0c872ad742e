// Package observability exposes Prometheus metrics for the transport,
// resilience and capture layers.
package observability

import (
	"net/http"
	"time"

	"github.com/grovetools/lumin/pkg/models"
	"github.com/grovetools/lumin/pkg/resilience"
	"github.com/grovetools/lumin/pkg/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so that several instances, e.g. one per
// test, never collide.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	modeTransitions *prometheus.CounterVec
	framesCaptured  prometheus.Counter
	framesSkipped   prometheus.Counter
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lumin_transport_requests_total",
				Help: "Total number of remote calls by outcome",
			},
			[]string{"op", "outcome"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lumin_transport_request_duration_seconds",
				Help:    "Remote call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		modeTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lumin_mode_transitions_total",
				Help: "Total number of module mode changes",
			},
			[]string{"module", "to"},
		),
		framesCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumin_frames_captured_total",
			Help: "Total number of frames captured",
		}),
		framesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumin_frames_skipped_total",
			Help: "Total number of capture ticks without a frame",
		}),
	}
	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.modeTransitions,
		m.framesCaptured,
		m.framesSkipped,
	)
	return m
}

// ObserveRequest records a remote call.
func (m *Metrics) ObserveRequest(op string, outcome transport.Outcome, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(op, outcome.String()).Inc()
	m.requestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ModeTransition records a module changing mode.
func (m *Metrics) ModeTransition(module models.Module, from, to resilience.Mode) {
	m.modeTransitions.WithLabelValues(module.String(), to.String()).Inc()
}

// FrameCaptured counts a captured frame.
func (m *Metrics) FrameCaptured() {
	m.framesCaptured.Inc()
}

// FrameSkipped counts a tick without a frame.
func (m *Metrics) FrameSkipped() {
	m.framesSkipped.Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
