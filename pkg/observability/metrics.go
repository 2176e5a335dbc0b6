package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics namespace for all netops metrics.
const metricsNamespace = "netops"

var (
	// ActionCallsTotal counts action invocations by action name and status.
	ActionCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "action_calls_total",
			Help:      "Total number of action invocations",
		},
		[]string{"action", "status"},
	)

	// TicketsTotal counts tickets by validation outcome.
	TicketsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tickets_total",
			Help:      "Total number of tickets created",
		},
		[]string{"validation"},
	)

	// EscalationsTotal counts escalated tickets by reason.
	EscalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "escalations_total",
			Help:      "Total number of escalated tickets",
		},
		[]string{"reason"},
	)

	// MatchScore observes the similarity score of the selected runbook.
	MatchScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "match_score",
			Help:      "Similarity score of the runbook selected for an incident",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	// IncidentDuration measures per-incident processing time in seconds.
	IncidentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "incident_duration_seconds",
			Help:      "Duration of incident processing in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(
		ActionCallsTotal,
		TicketsTotal,
		EscalationsTotal,
		MatchScore,
		IncidentDuration,
	)
}
