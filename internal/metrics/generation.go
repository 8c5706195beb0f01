package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every poisearch metric.
const Namespace = "poisearch"

// Text-generation Prometheus metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "generation_requests_total",
			Help:      "Total number of text-generation calls",
		},
		[]string{"kind", "status"}, // kind: intent, rewrite or enrich; status: success / error / fallback / rejected
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "generation_request_duration_seconds",
			Help:      "Text-generation call duration in seconds, retries included",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"kind"},
	)

	GenerationCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "generation_cache_total",
			Help:      "Generation cache lookups by outcome",
		},
		[]string{"result"}, // "hit_local" / "hit_remote" / "miss" / "invalidated"
	)
)

// Recall Prometheus metrics.
var (
	SubqueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "recall_subqueries_total",
			Help:      "Recall sub-queries by strategy and outcome",
		},
		[]string{"strategy", "status"},
	)

	SubqueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "recall_subquery_duration_seconds",
			Help:      "Recall sub-query duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"strategy"},
	)

	MergedCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "recall_merged_candidates",
			Help:      "Distinct candidates after merging all sub-queries",
			Buckets:   prometheus.LinearBuckets(0, 10, 10),
		},
	)
)

var registerOnce sync.Once

// Register registers generation and recall metrics on the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			GenerationRequestsTotal,
			GenerationRequestDuration,
			GenerationCacheTotal,
			SubqueriesTotal,
			SubqueryDuration,
			MergedCandidates,
		)
	})
}
