package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice note gateway
type Metrics struct {
	// Transcription metrics
	TranscriptionRequests prometheus.Counter
	TranscriptionFailures *prometheus.CounterVec
	TranscriptionDuration prometheus.Histogram
	ClipDuration          prometheus.Histogram

	// Enhancement metrics
	EnhancementRequests  *prometheus.CounterVec
	EnhancementFallbacks *prometheus.CounterVec
	EnhancementDuration  prometheus.Histogram

	// Note store metrics
	NotesCreated       prometheus.Counter
	NoteCreateFailures prometheus.Counter
	SearchRequests     prometheus.Counter
	SearchFailures     prometheus.Counter

	// Pipeline metrics
	PipelinesCompleted *prometheus.CounterVec
	PipelineDuration   *prometheus.HistogramVec

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gateway_transcription_requests_total",
			Help: "Total number of transcription requests",
		}),
		TranscriptionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_transcription_failures_total",
			Help: "Total number of failed transcriptions by failure kind",
		}, []string{"kind"}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_transcription_duration_seconds",
			Help:    "Duration of transcription engine calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		ClipDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_clip_duration_seconds",
			Help:    "Duration of submitted audio clips",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 9), // 0.5s to ~4 minutes
		}),

		EnhancementRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_enhancement_requests_total",
			Help: "Total number of enhancement requests by task",
		}, []string{"task"}),
		EnhancementFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_enhancement_fallbacks_total",
			Help: "Total number of enhancements degraded to pass-through by task",
		}, []string{"task"}),
		EnhancementDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_enhancement_duration_seconds",
			Help:    "Duration of LLM enhancement calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),

		NotesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gateway_notes_created_total",
			Help: "Total number of notes persisted to the note store",
		}),
		NoteCreateFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gateway_note_create_failures_total",
			Help: "Total number of failed note store writes",
		}),
		SearchRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gateway_search_requests_total",
			Help: "Total number of note search requests",
		}),
		SearchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gateway_search_failures_total",
			Help: "Total number of failed note searches",
		}),

		PipelinesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_pipelines_completed_total",
			Help: "Total number of completed pipelines by name and outcome",
		}, []string{"pipeline", "outcome"}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_pipeline_duration_seconds",
			Help:    "End-to-end duration of request pipelines",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"pipeline"}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordTranscription records one transcription attempt
func (m *Metrics) RecordTranscription(clipSeconds, durationSeconds float64) {
	m.TranscriptionRequests.Inc()
	m.ClipDuration.Observe(clipSeconds)
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed transcription
func (m *Metrics) RecordTranscriptionFailure(kind string) {
	m.TranscriptionRequests.Inc()
	m.TranscriptionFailures.WithLabelValues(kind).Inc()
}

// RecordEnhancement records one enhancement attempt
func (m *Metrics) RecordEnhancement(task string, succeeded bool, durationSeconds float64) {
	m.EnhancementRequests.WithLabelValues(task).Inc()
	m.EnhancementDuration.Observe(durationSeconds)
	if !succeeded {
		m.EnhancementFallbacks.WithLabelValues(task).Inc()
	}
}

// RecordNoteCreated increments the notes created counter
func (m *Metrics) RecordNoteCreated() {
	m.NotesCreated.Inc()
}

// RecordNoteCreateFailure increments the note write failure counter
func (m *Metrics) RecordNoteCreateFailure() {
	m.NoteCreateFailures.Inc()
}

// RecordSearch records one search attempt
func (m *Metrics) RecordSearch(failed bool) {
	m.SearchRequests.Inc()
	if failed {
		m.SearchFailures.Inc()
	}
}

// RecordPipeline records a completed pipeline run
func (m *Metrics) RecordPipeline(pipeline, outcome string, durationSeconds float64) {
	m.PipelinesCompleted.WithLabelValues(pipeline, outcome).Inc()
	m.PipelineDuration.WithLabelValues(pipeline).Observe(durationSeconds)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
