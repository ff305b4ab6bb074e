package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkflowMetrics exposes the resolution pipeline's observability signals.
// It satisfies both the engine's metrics sink and the retrieval
// coordinator's failure counter.
type WorkflowMetrics struct {
	stageDuration        *prometheus.HistogramVec
	reflectionIterations prometheus.Counter
	sourceFailures       *prometheus.CounterVec
	persistFailures      prometheus.Counter
	resolvedTurns        *prometheus.CounterVec
}

func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	factory := promauto.With(reg)
	return &WorkflowMetrics{
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "drug_agentic",
			Subsystem: "workflow",
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each workflow stage.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		reflectionIterations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "drug_agentic",
			Subsystem: "workflow",
			Name:      "reflection_iterations_total",
			Help:      "Reflection expansions triggered by insufficient verdicts.",
		}),
		sourceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drug_agentic",
			Subsystem: "retrieval",
			Name:      "source_failures_total",
			Help:      "Failed retrieval source calls, by source.",
		}, []string{"source"}),
		persistFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "drug_agentic",
			Subsystem: "persistence",
			Name:      "failures_total",
			Help:      "Turn records that could not be dispatched or written.",
		}),
		resolvedTurns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drug_agentic",
			Subsystem: "workflow",
			Name:      "resolved_turns_total",
			Help:      "Completed turns, by terminal status.",
		}, []string{"status"}),
	}
}

func (m *WorkflowMetrics) ObserveStage(stage string, seconds float64) {
	m.stageDuration.WithLabelValues(stage).Observe(seconds)
}

func (m *WorkflowMetrics) IncReflectionIteration() {
	m.reflectionIterations.Inc()
}

func (m *WorkflowMetrics) IncSourceFailure(source string) {
	m.sourceFailures.WithLabelValues(source).Inc()
}

func (m *WorkflowMetrics) IncPersistFailure() {
	m.persistFailures.Inc()
}

func (m *WorkflowMetrics) IncResolvedTurn(status string) {
	m.resolvedTurns.WithLabelValues(status).Inc()
}
