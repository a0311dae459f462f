// Package metrics provides Prometheus metrics for the saberlens enrichment service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	refreshInterval  atomic.Int64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Cache metrics
	cacheLookups   *prometheus.CounterVec
	cacheEntries   *prometheus.GaugeVec
	cacheEvictions *prometheus.CounterVec
	inflightJoins  prometheus.Counter
	snapshotWrites *prometheus.CounterVec

	// Upstream metrics
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	breakerState     *prometheus.GaugeVec

	// Pipeline metrics
	payloadsObserved   *prometheus.CounterVec
	entriesDropped     *prometheus.CounterVec
	batchesPublished   prometheus.Counter
	batchesStale       prometheus.Counter
	enrichLatency      prometheus.Histogram
	replayResolutions  *prometheus.CounterVec
	replayStale        prometheus.Counter
	navigationTriggers *prometheus.CounterVec
	streamClients      prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue Metrics
	queueCapacity          prometheus.Gauge
	queueSize              prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker Metrics
	workerActiveCount       prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "saberlens",
		subsystem:        "enrichment",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}
	m.enabled.Store(true)
	m.refreshInterval.Store(int64(defaultRefreshInterval))

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Cache metrics
	m.cacheLookups = m.counterVec("cache_lookups_total",
		"Cache lookups by cache and result (hit, absent, miss)", "cache", "result")
	m.cacheEntries = m.gaugeVec("cache_entries",
		"Number of entries held by each in-memory cache", "cache")
	m.cacheEvictions = m.counterVec("cache_evictions_total",
		"Entries evicted from bounded caches", "cache")
	m.inflightJoins = m.counter("inflight_joins_total",
		"Lookups that joined an already running fetch instead of issuing a new one")
	m.snapshotWrites = m.counterVec("snapshot_writes_total",
		"Persisted cache snapshot writes by outcome", "outcome")

	// Upstream metrics
	m.upstreamRequests = m.counterVec("upstream_requests_total",
		"Outbound requests by source and outcome", "source", "outcome")
	m.upstreamLatency = m.histogramVec("upstream_latency_milliseconds",
		"Outbound request latency in milliseconds", "source")
	m.breakerState = m.gaugeVec("breaker_state",
		"Circuit breaker state per source (0 closed, 1 half-open, 2 open)", "source")

	// Pipeline metrics
	m.payloadsObserved = m.counterVec("payloads_observed_total",
		"Observer events received by kind", "kind")
	m.entriesDropped = m.counterVec("entries_dropped_total",
		"Score entries dropped by stage", "stage")
	m.batchesPublished = m.counter("batches_published_total",
		"Enriched batches surfaced to presentation")
	m.batchesStale = m.counter("batches_stale_total",
		"Enriched batches discarded because the active context changed")
	m.enrichLatency = m.histogram("enrich_latency_milliseconds",
		"End-to-end enrichment latency including the settle delay")
	m.replayResolutions = m.counterVec("replay_resolutions_total",
		"Per-record replay resolutions by status", "status")
	m.replayStale = m.counter("replay_stale_total",
		"Replay resolutions discarded because the active context changed")
	m.navigationTriggers = m.counterVec("navigation_triggers_total",
		"Debounced navigation triggers by outcome (fired, suppressed)", "outcome")
	m.streamClients = m.gauge("stream_clients",
		"Connected presentation stream clients")

	// HTTP Performance Metrics
	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	// Queue Metrics
	m.queueCapacity = m.gauge("queue_capacity", "Maximum capacity of the replay job queue")
	m.queueSize = m.gauge("queue_size", "Current size of the replay job queue")
	m.queueUtilization = m.gauge("queue_utilization", "Replay job queue utilization (0-1)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of jobs enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of enqueue failures")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds",
		"Queue enqueue latency in milliseconds")

	// Worker Metrics
	m.workerActiveCount = m.gauge("worker_active_count", "Number of replay workers")
	m.workerMessagesPerSecond = m.gauge("worker_messages_per_second", "Replay jobs processed per second")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Replay job processing latency in milliseconds")
	m.workerErrorRate = m.counter("worker_errors_total", "Total number of worker errors")

	// Error Metrics
	m.errorRateByComponent = m.counterVec("errors_by_component_total",
		"Errors by component and type", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Errors by HTTP endpoint", "endpoint", "method", "error_type")

	// System Performance Metrics
	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Allocated heap memory in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds")
}

// Cache metrics.

// RecordCacheLookup counts a lookup against cache with result hit, absent or miss.
func RecordCacheLookup(cache, result string) {
	if !Enabled() {
		return
	}
	globalManager.cacheLookups.WithLabelValues(cache, result).Inc()
}

// UpdateCacheEntries sets the number of entries held by cache.
func UpdateCacheEntries(cache string, count int) {
	if !Enabled() {
		return
	}
	globalManager.cacheEntries.WithLabelValues(cache).Set(float64(count))
}

// RecordCacheEviction counts an entry pushed out of a bounded cache.
func RecordCacheEviction(cache string) {
	if !Enabled() {
		return
	}
	globalManager.cacheEvictions.WithLabelValues(cache).Inc()
}

// RecordInflightJoin counts a lookup that joined a running fetch.
func RecordInflightJoin() {
	if !Enabled() {
		return
	}
	globalManager.inflightJoins.Inc()
}

// RecordSnapshotWrite counts a persisted snapshot write.
func RecordSnapshotWrite(outcome string) {
	if !Enabled() {
		return
	}
	globalManager.snapshotWrites.WithLabelValues(outcome).Inc()
}

// Upstream metrics.

// RecordUpstreamRequest counts an outbound request.
func RecordUpstreamRequest(source, outcome string) {
	if !Enabled() {
		return
	}
	globalManager.upstreamRequests.WithLabelValues(source, outcome).Inc()
}

// RecordUpstreamLatency records outbound latency in milliseconds.
func RecordUpstreamLatency(source string, latencyMs float64) {
	if !Enabled() {
		return
	}
	globalManager.upstreamLatency.WithLabelValues(source).Observe(latencyMs)
}

// UpdateBreakerState sets the numeric breaker state for source.
func UpdateBreakerState(source string, state float64) {
	if !Enabled() {
		return
	}
	globalManager.breakerState.WithLabelValues(source).Set(state)
}

// Pipeline metrics.

// RecordPayloadObserved counts an observer event (request, response, navigation).
func RecordPayloadObserved(kind string) {
	if !Enabled() {
		return
	}
	globalManager.payloadsObserved.WithLabelValues(kind).Inc()
}

// RecordEntriesDropped adds n dropped entries for stage.
func RecordEntriesDropped(stage string, n int) {
	if !Enabled() {
		return
	}
	if n > 0 {
		globalManager.entriesDropped.WithLabelValues(stage).Add(float64(n))
	}
}

// RecordBatchPublished counts a batch surfaced to presentation.
func RecordBatchPublished() {
	if !Enabled() {
		return
	}
	globalManager.batchesPublished.Inc()
}

// RecordBatchStale counts a batch discarded as stale.
func RecordBatchStale() {
	if !Enabled() {
		return
	}
	globalManager.batchesStale.Inc()
}

// RecordEnrichLatency records enrichment latency in milliseconds.
func RecordEnrichLatency(latencyMs float64) {
	if !Enabled() {
		return
	}
	globalManager.enrichLatency.Observe(latencyMs)
}

// RecordReplayResolution counts a replay resolution by status.
func RecordReplayResolution(status string) {
	if !Enabled() {
		return
	}
	globalManager.replayResolutions.WithLabelValues(status).Inc()
}

// RecordReplayStale counts a replay resolution discarded as stale.
func RecordReplayStale() {
	if !Enabled() {
		return
	}
	globalManager.replayStale.Inc()
}

// RecordNavigationTrigger counts a debounced navigation trigger outcome.
func RecordNavigationTrigger(outcome string) {
	if !Enabled() {
		return
	}
	globalManager.navigationTriggers.WithLabelValues(outcome).Inc()
}

// UpdateStreamClients sets the connected stream client count.
func UpdateStreamClients(count int) {
	if !Enabled() {
		return
	}
	globalManager.streamClients.Set(float64(count))
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !Enabled() {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !Enabled() {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue metrics.

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	if !Enabled() {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if !Enabled() {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueUtilization sets the queue utilization.
func UpdateQueueUtilization(utilization float64) {
	if !Enabled() {
		return
	}
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts an enqueued job.
func RecordQueueEnqueue() {
	if !Enabled() {
		return
	}
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue counts a dequeued job.
func RecordQueueDequeue() {
	if !Enabled() {
		return
	}
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError() {
	if !Enabled() {
		return
	}
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records enqueue latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	if !Enabled() {
		return
	}
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker metrics.

// UpdateWorkerActiveCount sets the worker count.
func UpdateWorkerActiveCount(count int) {
	if !Enabled() {
		return
	}
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerMessagesPerSecond sets the worker throughput.
func UpdateWorkerMessagesPerSecond(rate float64) {
	if !Enabled() {
		return
	}
	globalManager.workerMessagesPerSecond.Set(rate)
}

// RecordWorkerProcessingLatency records job processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if !Enabled() {
		return
	}
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a worker error.
func RecordWorkerError() {
	if !Enabled() {
		return
	}
	globalManager.workerErrorRate.Inc()
}

// Error metrics.

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	if !Enabled() {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error for an HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !Enabled() {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !Enabled() {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	if !Enabled() {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !Enabled() {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// Configure applies runtime options to the global manager. Only
// WithMetricsEnabled and WithRefreshInterval take effect here; options that
// shape metric names are fixed once the metrics are registered.
func Configure(opts ...Option) {
	for _, opt := range opts {
		opt(globalManager)
	}
}

// Enabled reports whether the package-level recorders are active.
func Enabled() bool {
	return globalManager.enabled.Load()
}

// RefreshInterval is how often polled gauges, such as the system metrics,
// should be refreshed.
func RefreshInterval() time.Duration {
	return time.Duration(globalManager.refreshInterval.Load())
}

// GetRegistry returns the custom registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
