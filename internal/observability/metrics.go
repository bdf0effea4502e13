package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Evaluation outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeDegraded = "degraded"
	OutcomeError    = "error"
)

var (
	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "csat_guardian",
			Name:      "evaluations_total",
			Help:      "Total case evaluations handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	evaluationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "csat_guardian",
			Name:      "evaluation_seconds",
			Help:      "Per-case evaluation latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		},
	)

	alertTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "csat_guardian",
			Name:      "alert_transitions_total",
			Help:      "Alert state machine transitions, partitioned by kind and transition.",
		},
		[]string{"kind", "transition"},
	)

	collaboratorFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "csat_guardian",
			Name:      "collaborator_failures_total",
			Help:      "External collaborator timeouts and errors, partitioned by collaborator.",
		},
		[]string{"collaborator"},
	)
)

// Register attaches the engine collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		evaluationsTotal,
		evaluationDurationSeconds,
		alertTransitionsTotal,
		collaboratorFailuresTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveEvaluation records one completed case evaluation.
func ObserveEvaluation(outcome string, duration time.Duration) {
	evaluationsTotal.WithLabelValues(outcome).Inc()
	evaluationDurationSeconds.Observe(duration.Seconds())
}

// ObserveAlertTransition records an alert state machine transition.
func ObserveAlertTransition(kind, transition string) {
	alertTransitionsTotal.WithLabelValues(kind, transition).Inc()
}

// ObserveCollaboratorFailure records an unreachable or timed-out collaborator.
func ObserveCollaboratorFailure(collaborator string) {
	collaboratorFailuresTotal.WithLabelValues(collaborator).Inc()
}
