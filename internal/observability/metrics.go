package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects Prometheus metrics for the query pipeline.
//
// Tracked series:
//   - query volume and end-to-end latency, by outcome
//   - routing decisions by target responder and confidence band
//   - responder invocations and latency, by responder and outcome
//   - synthesis fallbacks (deterministic concatenation path)
//   - evaluation outcomes by method and level
type Metrics struct {
	// QueryCounter counts processed queries.
	// Labels: status (success|error)
	QueryCounter *prometheus.CounterVec

	// QueryDuration measures end-to-end pipeline latency in seconds.
	QueryDuration prometheus.Histogram

	// RoutingCounter counts routed responder selections.
	// Labels: responder, band (HIGH|MEDIUM|LOW)
	RoutingCounter *prometheus.CounterVec

	// RoutingFallbacks counts routing decisions served by the static
	// fallback path.
	RoutingFallbacks prometheus.Counter

	// ResponderDuration measures individual responder latency.
	// Labels: responder
	ResponderDuration *prometheus.HistogramVec

	// ResponderCounter counts responder invocations.
	// Labels: responder, status (success|error|panic)
	ResponderCounter *prometheus.CounterVec

	// SynthesisFallbacks counts deterministic concatenation fallbacks.
	SynthesisFallbacks prometheus.Counter

	// EvaluationCounter counts evaluations.
	// Labels: method (judge|heuristic), level
	EvaluationCounter *prometheus.CounterVec
}

// NewMetrics creates and registers the pipeline metrics on the given
// registerer. Passing prometheus.DefaultRegisterer wires them into the
// standard /metrics endpoint; tests pass a fresh registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueryCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "policydesk_queries_total",
			Help: "Processed queries by outcome.",
		}, []string{"status"}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "policydesk_query_duration_seconds",
			Help:    "End-to-end query pipeline latency.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		RoutingCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "policydesk_routing_total",
			Help: "Routed responder selections by confidence band.",
		}, []string{"responder", "band"}),
		RoutingFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "policydesk_routing_fallbacks_total",
			Help: "Routing decisions produced by the static fallback.",
		}),
		ResponderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "policydesk_responder_duration_seconds",
			Help:    "Responder invocation latency.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"responder"}),
		ResponderCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "policydesk_responder_total",
			Help: "Responder invocations by outcome.",
		}, []string{"responder", "status"}),
		SynthesisFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "policydesk_synthesis_fallbacks_total",
			Help: "Synthesis calls that fell back to deterministic concatenation.",
		}),
		EvaluationCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "policydesk_evaluations_total",
			Help: "Answer evaluations by method and level.",
		}, []string{"method", "level"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.QueryCounter,
			m.QueryDuration,
			m.RoutingCounter,
			m.RoutingFallbacks,
			m.ResponderDuration,
			m.ResponderCounter,
			m.SynthesisFallbacks,
			m.EvaluationCounter,
		)
	}
	return m
}

// NewNopMetrics returns unregistered metrics for tests and tools that
// don't expose an endpoint.
func NewNopMetrics() *Metrics {
	return NewMetrics(nil)
}
