// Package metrics exposes prometheus instrumentation for the sync core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors shared by the request executor and the SSE
// subscriptions.
type Metrics struct {
	RequestsInFlight   prometheus.Gauge
	RequestsTotal      *prometheus.CounterVec
	ConflictRetries    prometheus.Counter
	SSEEvents          *prometheus.CounterVec
	CompletionTimeouts prometheus.Counter
}

// New creates the collectors and registers them on reg. Pass a fresh
// prometheus.NewRegistry() in tests to keep registrations isolated.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mindmesh",
			Name:      "requests_in_flight",
			Help:      "Mutating requests currently outstanding.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mindmesh",
			Name:      "requests_total",
			Help:      "Completed requests by outcome.",
		}, []string{"outcome"}),
		ConflictRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mindmesh",
			Name:      "conflict_retries_total",
			Help:      "Retries caused by ETag precondition failures.",
		}),
		SSEEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mindmesh",
			Name:      "sse_events_total",
			Help:      "Decoded SSE payloads by subscription.",
		}, []string{"subscription"}),
		CompletionTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mindmesh",
			Name:      "completion_timeouts_total",
			Help:      "Chat completions aborted by the request ceiling.",
		}),
	}

	reg.MustRegister(
		m.RequestsInFlight,
		m.RequestsTotal,
		m.ConflictRetries,
		m.SSEEvents,
		m.CompletionTimeouts,
	)
	return m
}
