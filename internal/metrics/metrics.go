// Package metrics defines the Prometheus instrumentation for the pipeline,
// the job driver, and the HTTP API, all registered via promauto against the
// default registry and exposed at GET /metrics.
//
// The pipeline stage metrics (StageDuration, ChunksProcessed,
// FallbackRowsAdded) are registered and exported but nothing records
// them: internal/recommend does not import this package.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline stage metrics.

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recflow_stage_duration_seconds",
			Help:    "Duration of each recommendation pipeline stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"}, // score, filter, adjust, rank, fallback
	)

	ChunksProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recflow_chunks_processed_total",
			Help: "Total number of user-cohort chunks processed",
		},
	)

	FallbackRowsAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recflow_fallback_rows_added_total",
			Help: "Total number of recommendation rows backfilled by the popularity fallback",
		},
	)

	// Job driver metrics.

	JobsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recflow_jobs_accepted_total",
			Help: "Total number of batches accepted via the trigger endpoint",
		},
	)

	JobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recflow_jobs_completed_total",
			Help: "Total number of batches completed, by outcome",
		},
		[]string{"outcome"}, // success, STORAGE_ERROR, PARSING_ERROR, VALIDATION_ERROR, SCORING_ERROR
	)

	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recflow_job_duration_seconds",
			Help:    "End-to-end duration of a batch job, download through callback",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	JobsDeduped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recflow_jobs_deduped_total",
			Help: "Total number of trigger requests short-circuited by the idempotency guard",
		},
	)

	// HTTP layer metrics.

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recflow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	CallbackAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recflow_callback_attempts_total",
			Help: "Total number of completion-callback delivery attempts, by outcome",
		},
		[]string{"outcome"}, // delivered, retried, circuit_open, failed
	)
)
