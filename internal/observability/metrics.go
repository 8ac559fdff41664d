package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the citation service.
// Metrics are organized by subsystem: extraction runs, extraction sources,
// corpus matching, and store writes. All counters and histograms are
// registered via promauto for automatic registration with the default
// Prometheus registry.
type Metrics struct {
	// ExtractionsStarted counts extraction runs initiated.
	ExtractionsStarted prometheus.Counter

	// ExtractionsCompleted counts extraction runs that finished successfully.
	ExtractionsCompleted prometheus.Counter

	// ExtractionsFailed counts extraction runs that ended in a storage failure.
	ExtractionsFailed prometheus.Counter

	// ExtractionDuration observes the end-to-end duration of runs in seconds.
	ExtractionDuration prometheus.Histogram

	// ReferencesExtracted counts raw references contributed, labeled by source.
	ReferencesExtracted *prometheus.CounterVec

	// SourceFailures counts non-fatal source failures, labeled by source.
	SourceFailures *prometheus.CounterVec

	// CitationsMatched counts canonical citations resolved to a corpus document.
	CitationsMatched prometheus.Counter

	// MatchesByMethod counts match outcomes, labeled by method (doi, title, none).
	MatchesByMethod *prometheus.CounterVec

	// EdgesWritten counts citation-graph edges written.
	EdgesWritten prometheus.Counter

	// CitationsReplaced counts canonical citation rows written to the citation store.
	CitationsReplaced prometheus.Counter

	// EventsConsumed counts document-indexed events consumed from Kafka.
	EventsConsumed prometheus.Counter

	// EventsPublished counts citations-extracted events published to Kafka.
	EventsPublished prometheus.Counter

	// HTTPRequestDuration observes HTTP handler duration in seconds, labeled by route and status.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ExtractionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_started_total",
			Help:      "Total number of citation extraction runs started",
		}),
		ExtractionsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_completed_total",
			Help:      "Total number of citation extraction runs completed successfully",
		}),
		ExtractionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_failed_total",
			Help:      "Total number of citation extraction runs that failed on a store write",
		}),
		ExtractionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "End-to-end duration of citation extraction runs",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		ReferencesExtracted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "references_extracted_total",
			Help:      "Total raw references contributed, by source",
		}, []string{"source"}),
		SourceFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Total non-fatal extraction source failures, by source",
		}, []string{"source"}),
		CitationsMatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citations_matched_total",
			Help:      "Total canonical citations resolved to an indexed document",
		}),
		MatchesByMethod: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_by_method_total",
			Help:      "Total match outcomes, by match method",
		}, []string{"method"}),
		EdgesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_edges_written_total",
			Help:      "Total citation graph edges written",
		}),
		CitationsReplaced: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citations_replaced_total",
			Help:      "Total canonical citation rows written to the citation store",
		}),
		EventsConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_consumed_total",
			Help:      "Total document-indexed events consumed",
		}),
		EventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total citations-extracted events published",
		}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP handler duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
