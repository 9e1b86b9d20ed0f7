// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// CompletionDuration tracks completion round-trip duration per model.
	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_completion_duration_seconds",
			Help:    "Completion request duration in seconds",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"model", "status"},
	)

	// ModelEscalationsTotal tracks model-not-found escalations.
	ModelEscalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_model_escalations_total",
			Help: "Total escalations through the model chain",
		},
		[]string{"from_model", "to_model"},
	)

	// ProposalsExtractedTotal tracks stack proposals extracted from responses.
	ProposalsExtractedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_proposals_extracted_total",
			Help: "Total stack proposals extracted from completions",
		},
	)

	// ParseRecoveriesTotal tracks truncation recoveries in the response parser.
	ParseRecoveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_parse_recoveries_total",
			Help: "Response parser recovery attempts by outcome",
		},
		[]string{"outcome"},
	)

	// ClarificationsTotal tracks clarification questions asked and answered.
	ClarificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_clarifications_total",
			Help: "Clarification questions by stage",
		},
		[]string{"stage"},
	)

	// TurnsTotal tracks transcript turns appended.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_turns_total",
			Help: "Total transcript turns appended",
		},
		[]string{"role"},
	)

	// ConversationsTotal tracks total conversations created.
	ConversationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_conversations_total",
			Help: "Total conversations created",
		},
	)

	// PersistFailuresTotal tracks fire-and-forget persistence failures.
	PersistFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_persist_failures_total",
			Help: "Persistence failures by operation",
		},
		[]string{"operation"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordCompletion records metrics for a completion round trip.
func RecordCompletion(model, status string, duration float64) {
	CompletionDuration.WithLabelValues(model, status).Observe(duration)
}

// RecordEscalation records a model chain escalation.
func RecordEscalation(from, to string) {
	ModelEscalationsTotal.WithLabelValues(from, to).Inc()
}
