package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query outcomes.
const (
	OutcomeAnswer            = "answer"
	OutcomeFallbackEmpty     = "fallback_empty"
	OutcomeFallbackThreshold = "fallback_low_confidence"
	OutcomeError             = "error"
)

// Answer pipeline Prometheus metrics.
var (
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Answer pipeline stage duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 90},
		},
		[]string{"stage"},
	)

	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total answered queries by outcome",
		},
		[]string{"outcome"},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confidence_score",
			Help:      "Distribution of computed confidence scores",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	CitationsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citation_tokens_dropped_total",
			Help:      "Non-integer entries dropped from [SOURCE ...] annotations",
		},
	)

	GeneratorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_requests_total",
			Help:      "Total language model requests",
		},
		[]string{"provider", "model", "status"},
	)

	GeneratorLockWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generator_lock_wait_seconds",
			Help:      "Time spent queueing for the single generation slot",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
	)

	GeneratorTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_tokens_total",
			Help:      "Total language model tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	RerankRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rerank_requests_total",
			Help:      "Total reranker service requests",
		},
		[]string{"model", "status"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers the answer pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(CitationsDroppedTotal)
	prometheus.MustRegister(GeneratorRequestsTotal)
	prometheus.MustRegister(GeneratorLockWait)
	prometheus.MustRegister(GeneratorTokensTotal)
	prometheus.MustRegister(RerankRequestsTotal)
	pipelineMetricsRegistered = true
}
