// Package metrics provides Prometheus metrics for the score import service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the import service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Import outcomes
	imports          *prometheus.CounterVec
	importDuration   *prometheus.HistogramVec
	importFailures   *prometheus.CounterVec
	importsDuplicate prometheus.Counter
	scoresImported   *prometheus.CounterVec
	classProviders   *prometheus.CounterVec

	// Partner fetches
	partnerFetches       *prometheus.CounterVec
	partnerFetchDuration *prometheus.HistogramVec

	// Storage
	storedScores      prometheus.Gauge
	storeBatchLatency prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scoreimport",
		subsystem:        "engine",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.imports = m.counterVec("imports_total", "Import batches by type and outcome", "import_type", "outcome")
	m.importDuration = m.histogramVec("import_duration_milliseconds", "End-to-end import duration in milliseconds", "import_type")
	m.importFailures = m.counterVec("import_failures_total", "Rejected import batches by stage and error kind", "stage", "kind")
	m.importsDuplicate = m.counter("imports_duplicate_total", "Submissions rejected as byte-identical repeats")
	m.scoresImported = m.counterVec("scores_imported_total", "Canonical scores persisted", "game")
	m.classProviders = m.counterVec("class_provider_calls_total", "Class provider invocations by outcome", "outcome")

	m.partnerFetches = m.counterVec("partner_fetches_total", "Partner API requests by partner and status", "partner", "status_code")
	m.partnerFetchDuration = m.histogramVec("partner_fetch_duration_milliseconds", "Partner API request duration in milliseconds", "partner")

	m.storedScores = m.gauge("stored_scores", "Scores held by the store")
	m.storeBatchLatency = m.histogram("store_batch_latency_milliseconds", "Batch persistence latency in milliseconds")

	m.queueSize = m.gauge("queue_size", "Current number of queued import jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of queued import jobs")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Import jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Import jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Import jobs refused by the queue")

	m.workerCount = m.gauge("worker_count", "Configured import workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently running a job")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Job processing latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Jobs that ended in an error")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
}

// RecordImport counts a finished import batch.
func RecordImport(importType, outcome string, durationMs float64) {
	globalManager.imports.WithLabelValues(importType, outcome).Inc()
	globalManager.importDuration.WithLabelValues(importType).Observe(durationMs)
}

// RecordImportFailure counts a rejected batch by stage and error kind.
func RecordImportFailure(stage, kind string) {
	globalManager.importFailures.WithLabelValues(stage, kind).Inc()
}

// RecordImportDuplicate counts a duplicate submission.
func RecordImportDuplicate() {
	globalManager.importsDuplicate.Inc()
}

// RecordScoresImported adds n persisted scores for g.
func RecordScoresImported(game string, n int) {
	globalManager.scoresImported.WithLabelValues(game).Add(float64(n))
}

// RecordClassProvider counts a class provider call.
func RecordClassProvider(outcome string) {
	globalManager.classProviders.WithLabelValues(outcome).Inc()
}

// RecordPartnerFetch records one partner API request.
func RecordPartnerFetch(partner, statusCode string, durationMs float64) {
	globalManager.partnerFetches.WithLabelValues(partner, statusCode).Inc()
	globalManager.partnerFetchDuration.WithLabelValues(partner).Observe(durationMs)
}

// UpdateStoredScores sets the number of stored scores.
func UpdateStoredScores(count int) {
	globalManager.storedScores.Set(float64(count))
}

// RecordStoreBatchLatency records batch persistence latency.
func RecordStoreBatchLatency(latencyMs float64) {
	globalManager.storeBatchLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records job processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
