// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qa_questions_total",
			Help: "Total number of questions processed, by outcome",
		},
		[]string{"outcome"}, // answered, clarify, deferred
	)

	DeferredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qa_deferred_total",
			Help: "Total number of questions deferred to the fallback, by reason",
		},
		[]string{"reason"},
	)

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "qa_pipeline_duration_seconds",
			Help: "Duration of the local pipeline per question in seconds",
		},
		[]string{"outcome"},
	)

	FallbackResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qa_fallback_results_total",
			Help: "Terminal fallback results written to the result store, by status",
		},
		[]string{"status"}, // completed, error
	)

	EntitiesMatched = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qa_entities_matched",
			Help:    "Number of entities recognized per question",
			Buckets: []float64{0, 1, 2, 3, 5, 8},
		},
	)
)
