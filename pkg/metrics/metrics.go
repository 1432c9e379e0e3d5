// Package metrics provides Prometheus metrics for the kenshin checkup service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Manager manages all Prometheus metrics for the kenshin service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Ingestion metrics
	uploadsParsed    prometheus.Counter
	parseErrors      prometheus.Counter
	rowsParsed       prometheus.Counter
	validationRuns   prometheus.Counter
	validationErrors *prometheus.CounterVec

	// Persistence metrics
	recordsSaved      prometheus.Counter
	saveErrors        prometheus.Counter
	storeQueryLatency prometheus.Histogram
	storeWriteLatency prometheus.Histogram
	recordsTotal      prometheus.Gauge

	// Read-side metrics
	aggregateQueries prometheus.Counter
	extractionRuns   prometheus.Counter
	extractedEntries prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	errorsByType        *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "kenshin",
		subsystem:        "checkup",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		}
	}
	gaugeOpts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		}
	}
	histOpts := func(name, help string) prometheus.HistogramOpts {
		return prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
			Buckets:   m.histogramBuckets,
		}
	}

	m.uploadsParsed = prometheus.NewCounter(factory("uploads_parsed_total", "Number of CSV uploads parsed"))
	m.parseErrors = prometheus.NewCounter(factory("parse_errors_total", "Number of CSV uploads rejected by the parser"))
	m.rowsParsed = prometheus.NewCounter(factory("rows_parsed_total", "Number of CSV data rows parsed"))
	m.validationRuns = prometheus.NewCounter(factory("validation_runs_total", "Number of validation runs"))
	m.validationErrors = prometheus.NewCounterVec(factory("validation_errors_total", "Validation errors by reason"), []string{"reason"})

	m.recordsSaved = prometheus.NewCounter(factory("records_saved_total", "Number of scored records persisted"))
	m.saveErrors = prometheus.NewCounter(factory("save_errors_total", "Number of failed record saves"))
	m.storeQueryLatency = prometheus.NewHistogram(histOpts("store_query_latency_ms", "Store read latency in milliseconds"))
	m.storeWriteLatency = prometheus.NewHistogram(histOpts("store_write_latency_ms", "Store write latency in milliseconds"))
	m.recordsTotal = prometheus.NewGauge(gaugeOpts("records_total", "Number of scored records in the store"))

	m.aggregateQueries = prometheus.NewCounter(factory("aggregate_queries_total", "Number of score distribution queries"))
	m.extractionRuns = prometheus.NewCounter(factory("extraction_runs_total", "Number of top-fraction extraction runs"))
	m.extractedEntries = prometheus.NewGauge(gaugeOpts("extracted_entries", "Number of entries in the extracted set"))

	m.httpRequests = prometheus.NewCounterVec(factory("http_requests_total", "HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status"})
	m.httpRequestDuration = prometheus.NewHistogramVec(histOpts("http_request_duration_ms", "HTTP request duration in milliseconds"), []string{"endpoint", "method", "status"})
	m.errorsByEndpoint = prometheus.NewCounterVec(factory("errors_by_endpoint_total", "Errors by endpoint and type"), []string{"endpoint", "method", "error_type"})
	m.errorsByType = prometheus.NewCounterVec(factory("errors_by_type_total", "Errors by type and severity"), []string{"error_type", "severity"})

	m.systemMemoryUsage = prometheus.NewGauge(gaugeOpts("system_memory_bytes", "Current allocated memory in bytes"))
	m.systemGoroutineCount = prometheus.NewGauge(gaugeOpts("system_goroutines", "Current number of goroutines"))

	if !m.enabled {
		return
	}
	m.registry.MustRegister(
		m.uploadsParsed, m.parseErrors, m.rowsParsed,
		m.validationRuns, m.validationErrors,
		m.recordsSaved, m.saveErrors,
		m.storeQueryLatency, m.storeWriteLatency, m.recordsTotal,
		m.aggregateQueries, m.extractionRuns, m.extractedEntries,
		m.httpRequests, m.httpRequestDuration,
		m.errorsByEndpoint, m.errorsByType,
		m.systemMemoryUsage, m.systemGoroutineCount,
	)
}

// Ingestion helpers.

// RecordUploadParsed increments the parsed-upload counter with the row count.
func RecordUploadParsed(rows int) {
	globalManager.uploadsParsed.Inc()
	globalManager.rowsParsed.Add(float64(rows))
}

// RecordParseError increments the rejected-upload counter.
func RecordParseError() {
	globalManager.parseErrors.Inc()
}

// RecordValidationRun increments the validation-run counter.
func RecordValidationRun() {
	globalManager.validationRuns.Inc()
}

// RecordValidationError counts one validation error by reason.
func RecordValidationError(reason string) {
	globalManager.validationErrors.WithLabelValues(reason).Inc()
}

// Persistence helpers.

// RecordRecordsSaved adds to the persisted-record counter.
func RecordRecordsSaved(count int) {
	globalManager.recordsSaved.Add(float64(count))
}

// RecordSaveError increments the failed-save counter.
func RecordSaveError() {
	globalManager.saveErrors.Inc()
}

// RecordStoreQueryLatency observes a store read latency in milliseconds.
func RecordStoreQueryLatency(latencyMs float64) {
	globalManager.storeQueryLatency.Observe(latencyMs)
}

// RecordStoreWriteLatency observes a store write latency in milliseconds.
func RecordStoreWriteLatency(latencyMs float64) {
	globalManager.storeWriteLatency.Observe(latencyMs)
}

// UpdateRecordsTotal sets the scored-record count gauge.
func UpdateRecordsTotal(count int) {
	globalManager.recordsTotal.Set(float64(count))
}

// Read-side helpers.

// RecordAggregateQuery increments the distribution-query counter.
func RecordAggregateQuery() {
	globalManager.aggregateQueries.Inc()
}

// RecordExtractionRun increments the extraction-run counter.
func RecordExtractionRun() {
	globalManager.extractionRuns.Inc()
}

// UpdateExtractedEntries sets the extracted-set size gauge.
func UpdateExtractedEntries(count int) {
	globalManager.extractedEntries.Set(float64(count))
}

// HTTP helpers.

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes one HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint counts an error against an endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByType counts an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// System helpers.

// UpdateSystemMemoryUsage sets the allocated-memory gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine-count gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
