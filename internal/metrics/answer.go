package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "askdex"

// Answer pipeline Prometheus metrics.
var (
	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answers produced, by confidence level",
		},
		[]string{"confidence"},
	)

	AnswerOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answer_outcomes_total",
			Help:      "Questions that ended without retrieved material, by reason",
		},
		[]string{"reason"},
	)

	AnswerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_duration_seconds",
			Help:      "End-to-end time to answer one question",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
	)

	PartitionSearchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partition_search_errors_total",
			Help:      "Partition searches that failed or timed out",
		},
		[]string{"partition"},
	)

	SelectedMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selected_matches_total",
			Help:      "Matches handed to synthesis, by source partition",
		},
		[]string{"partition"},
	)

	SynthesisRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_requests_total",
			Help:      "Answer synthesis requests",
		},
		[]string{"model", "status"},
	)

	SynthesisRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_request_duration_seconds",
			Help:      "Answer synthesis request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"model"},
	)

	SynthesisTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_tokens_total",
			Help:      "Total chat completion tokens consumed",
		},
		[]string{"model", "type"},
	)
)

var answerMetricsRegistered bool

// RegisterAnswerMetrics registers the answer pipeline metrics. Must be called once from main.
func RegisterAnswerMetrics() {
	if answerMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		AnswersTotal,
		AnswerOutcomesTotal,
		AnswerDuration,
		PartitionSearchErrorsTotal,
		SelectedMatchesTotal,
		SynthesisRequestsTotal,
		SynthesisRequestDuration,
		SynthesisTokensTotal,
	)
	answerMetricsRegistered = true
}
