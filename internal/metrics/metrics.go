// Package metrics объявляет Prometheus-метрики пайплайна.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — счётчики пайплайна, внедряются в компоненты по ссылке.
type Metrics struct {
	EventsConsumed *prometheus.CounterVec
	EventsFailed   prometheus.Counter

	IndexUpserts       prometheus.Counter
	IndexDeletes       prometheus.Counter
	IndexSkipped       prometheus.Counter
	IndexWriteFailures prometheus.Counter

	EmbeddingsGenerated prometheus.Counter
	EmbeddingsMerged    prometheus.Counter
	EmbeddingFailures   prometheus.Counter

	MatcherRuns         prometheus.Counter
	MatcherRunDuration  prometheus.Histogram
	SearchesMatched     prometheus.Counter
	NotificationsSent   prometheus.Counter
	NotificationsFailed prometheus.Counter
	TokensRemoved       prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EventsConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_events_consumed_total",
			Help: "Product change events consumed from Kafka.",
		}, []string{"type"}),
		EventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_events_failed_total",
			Help: "Product change events that failed handling (offset committed anyway).",
		}),
		IndexUpserts: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_index_upserts_total",
			Help: "Search index document upserts performed.",
		}),
		IndexDeletes: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_index_deletes_total",
			Help: "Search index document deletions performed.",
		}),
		IndexSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_index_skipped_total",
			Help: "Index writes skipped because the document is unchanged.",
		}),
		IndexWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_index_write_failures_total",
			Help: "Debounced index writes that failed.",
		}),
		EmbeddingsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_embeddings_generated_total",
			Help: "Full embedding generations (inference calls that succeeded).",
		}),
		EmbeddingsMerged: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_embeddings_merged_total",
			Help: "Metadata-only embedding record merges.",
		}),
		EmbeddingFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_embedding_failures_total",
			Help: "Embedding operations aborted by a failure (best-effort path).",
		}),
		MatcherRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_matcher_runs_total",
			Help: "Scheduled saved-search matcher runs.",
		}),
		MatcherRunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_matcher_run_duration_seconds",
			Help:    "Duration of a full matcher run.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		SearchesMatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_searches_matched_total",
			Help: "Saved searches with a non-empty match window result.",
		}),
		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_notifications_sent_total",
			Help: "Push messages confirmed delivered by the provider.",
		}),
		NotificationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_notifications_failed_total",
			Help: "Push messages rejected or failed.",
		}),
		TokensRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_tokens_removed_total",
			Help: "Device tokens removed after a provider-confirmed invalid-token error.",
		}),
	}
}
