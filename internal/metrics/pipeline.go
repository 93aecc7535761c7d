package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recommendation pipeline metrics.
var (
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of recommendation pipeline stages",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"stage"}, // embedding, retrieval, rerank, total
	)

	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation requests by outcome",
		},
		[]string{"outcome"}, // ok, no_results, error
	)

	DegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_degraded_total",
			Help:      "Degraded recommendations by reason",
		},
		[]string{"reason"},
	)

	RetrievalChannelDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_channel_duration_seconds",
			Help:      "Per-channel retrieval latency",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
		[]string{"channel"},
	)

	RetrievalTimeoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_timeouts_total",
			Help:      "Retrieval channels dropped after exceeding their deadline",
		},
		[]string{"channel"},
	)

	CandidatePoolSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidate_pool_size",
			Help:      "Fused candidates handed to the re-ranker",
			Buckets:   []float64{0, 1, 5, 10, 20, 30, 50, 100},
		},
	)

	ClassifierRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_requests_total",
			Help:      "Domain classifier calls by implementation and status",
		},
		[]string{"classifier", "status"},
	)
)

// Corpus metrics.
var (
	CorpusDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_documents",
			Help:      "Job postings in the active corpus generation",
		},
	)

	CorpusSwapsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corpus_swaps_total",
			Help:      "Corpus generation swaps by backend and status",
		},
		[]string{"backend", "status"},
	)

	IngestRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_rows_total",
			Help:      "Ingested posting rows by status",
		},
		[]string{"status"}, // ok, skipped, failed
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline and corpus metrics with the
// default registry. Repeated calls are no-ops.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		StageDuration,
		RecommendationsTotal,
		DegradedTotal,
		RetrievalChannelDuration,
		RetrievalTimeoutsTotal,
		CandidatePoolSize,
		ClassifierRequestsTotal,
		CorpusDocuments,
		CorpusSwapsTotal,
		IngestRowsTotal,
	)
	pipelineMetricsRegistered = true
}
