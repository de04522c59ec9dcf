package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Interview pipeline metrics
	TurnsProcessed  prometheus.Counter
	TurnLatency     prometheus.Histogram
	StageFallbacks  *prometheus.CounterVec
	TurnsConcluded  prometheus.Counter
	CandidatePoolSize prometheus.Histogram

	// Guardrail metrics
	GuardrailBlocks        prometheus.Counter
	GuardrailModifications prometheus.Counter
	SelfHarmFlags          prometheus.Counter

	// External call metrics
	InferenceCalls   *prometheus.CounterVec
	InferenceLatency *prometheus.HistogramVec

	// Report metrics
	ReportsGenerated *prometheus.CounterVec
	ReviewActions    *prometheus.CounterVec

	// Outbox metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		TurnsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_processed_total",
			Help:      "Total number of interview turns processed",
		}),
		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "End to end latency of one interview turn",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		StageFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_fallbacks_total",
			Help:      "Degraded-path activations per pipeline stage",
		}, []string{"stage"}),
		TurnsConcluded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interviews_concluded_total",
			Help:      "Total number of interviews that reached conclusion",
		}),
		CandidatePoolSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidate_pool_size",
			Help:      "Candidate pool size observed after narrowing",
			Buckets:   []float64{3, 5, 10, 15, 20, 30, 40, 50},
		}),
		GuardrailBlocks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guardrail_blocks_total",
			Help:      "Patient inputs refused by the ingress guardrail",
		}),
		GuardrailModifications: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guardrail_modifications_total",
			Help:      "Generated responses rewritten by the egress guardrail",
		}),
		SelfHarmFlags: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "self_harm_flags_total",
			Help:      "Inputs flagged for self-harm concern escalation",
		}),
		InferenceCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_calls_total",
			Help:      "External inference calls by shape and status",
		}, []string{"call", "status"}),
		InferenceLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_call_duration_seconds",
			Help:      "Latency of external inference calls",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"call"}),
		ReportsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_generated_total",
			Help:      "Clinical reports generated by final triage level",
		}, []string{"triage"}),
		ReviewActions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_actions_total",
			Help:      "Reviewer actions by type",
		}, []string{"action"}),
		OutboxEventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
	}
}
