package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper enrichment service.
// Metrics are organized by subsystem: ingestion, indexing, graph, analysis,
// and jobs. All counters and histograms are registered via promauto for
// automatic registration with the default Prometheus registry.
type Metrics struct {
	// PapersIngested counts papers created through ingestion, labeled by source.
	PapersIngested *prometheus.CounterVec

	// SourceSearches counts queries against bibliographic sources, labeled by source.
	SourceSearches *prometheus.CounterVec

	// SourceSearchesFailed counts failed source queries, labeled by source.
	SourceSearchesFailed *prometheus.CounterVec

	// IndexUpserts counts documents written to the search index.
	IndexUpserts prometheus.Counter

	// IndexUpsertsFailed counts failed index writes.
	IndexUpsertsFailed prometheus.Counter

	// GraphMerges counts paper/author merges into the co-authorship graph.
	GraphMerges prometheus.Counter

	// GraphMergesFailed counts failed graph merges.
	GraphMergesFailed prometheus.Counter

	// AnalysesCompleted counts persisted analyses, labeled by status.
	AnalysesCompleted *prometheus.CounterVec

	// AnalysesFailed counts analysis runs that ended in failure.
	AnalysesFailed prometheus.Counter

	// AnalysisDuration observes end-to-end analysis duration in seconds.
	AnalysisDuration prometheus.Histogram

	// LLMRequestsTotal counts model API requests, labeled by outcome.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestDuration observes model API request duration in seconds.
	LLMRequestDuration prometheus.Histogram

	// JobsEnqueued counts background jobs published to the queue.
	JobsEnqueued prometheus.Counter

	// JobsProcessed counts background jobs consumed, labeled by outcome.
	JobsProcessed *prometheus.CounterVec

	// HTTPRequestDuration observes HTTP request duration in seconds,
	// labeled by method and route pattern.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		PapersIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_ingested_total",
			Help:      "Papers created through ingestion, by source.",
		}, []string{"source"}),
		SourceSearches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_searches_total",
			Help:      "Queries issued to bibliographic sources, by source.",
		}, []string{"source"}),
		SourceSearchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_searches_failed_total",
			Help:      "Failed bibliographic source queries, by source.",
		}, []string{"source"}),
		IndexUpserts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_upserts_total",
			Help:      "Documents upserted into the search index.",
		}),
		IndexUpsertsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_upserts_failed_total",
			Help:      "Failed search index upserts.",
		}),
		GraphMerges: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_merges_total",
			Help:      "Paper and author merges into the co-authorship graph.",
		}),
		GraphMergesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_merges_failed_total",
			Help:      "Failed co-authorship graph merges.",
		}),
		AnalysesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_completed_total",
			Help:      "Persisted analyses, by status.",
		}, []string{"status"}),
		AnalysesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_failed_total",
			Help:      "Analysis runs that ended in failure.",
		}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end analysis duration in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Model API requests, by outcome.",
		}, []string{"outcome"}),
		LLMRequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Model API request duration in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}),
		JobsEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_enqueued_total",
			Help:      "Background jobs published to the queue.",
		}),
		JobsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Background jobs consumed, by outcome.",
		}, []string{"outcome"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}
