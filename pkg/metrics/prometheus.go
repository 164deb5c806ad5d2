// Package metrics provides Prometheus metrics for the dispatch service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Suggestions
	suggestions          *prometheus.CounterVec
	suggestionLatency    prometheus.Histogram
	suggestionCandidates prometheus.Histogram
	suggestionErrors     *prometheus.CounterVec

	// Roster
	rosterSize    prometheus.Gauge
	rosterUpdates *prometheus.CounterVec

	// Status events
	eventsProcessed prometheus.Counter
	eventsDuplicate prometheus.Counter
	eventsFailed    prometheus.Counter
	kafkaMessages   *prometheus.CounterVec

	// Queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueueErrors      prometheus.Counter
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the Record helpers

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals

func init() { //nolint:gochecknoinits
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates and registers a full metric set.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cityconnect",
		subsystem:        "dispatch",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen
	auto := promauto.With(m.registry)

	m.suggestions = auto.NewCounterVec(
		m.counterOpts("suggestions_total", "Suggestion requests served, by urgency"),
		[]string{"urgency"},
	)
	m.suggestionLatency = auto.NewHistogram(
		m.histogramOpts("suggestion_latency_milliseconds", "Time to rank and refine one suggestion request", m.histogramBuckets),
	)
	m.suggestionCandidates = auto.NewHistogram(
		m.histogramOpts("suggestion_candidates", "Candidates returned per suggestion request", []float64{0, 1, 2, 5, 10, 20, 50, 100}),
	)
	m.suggestionErrors = auto.NewCounterVec(
		m.counterOpts("suggestion_errors_total", "Rejected suggestion requests, by reason"),
		[]string{"reason"},
	)

	m.rosterSize = auto.NewGauge(m.gaugeOpts("roster_size", "Technicians currently in the roster"))
	m.rosterUpdates = auto.NewCounterVec(
		m.counterOpts("roster_updates_total", "Roster writes, by operation"),
		[]string{"operation"},
	)

	m.eventsProcessed = auto.NewCounter(m.counterOpts("status_events_processed_total", "Status events applied to the roster"))
	m.eventsDuplicate = auto.NewCounter(m.counterOpts("status_events_duplicate_total", "Status events dropped as replays"))
	m.eventsFailed = auto.NewCounter(m.counterOpts("status_events_failed_total", "Status events that could not be applied"))
	m.kafkaMessages = auto.NewCounterVec(
		m.counterOpts("kafka_messages_total", "Kafka status messages consumed, by outcome"),
		[]string{"result"},
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Status events waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum status events the queue holds"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Status events rejected by a full or closed queue"))
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Running status event workers"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Time to apply one status event", m.histogramBuckets),
	)
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Status events a worker failed to apply"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
}

// RecordSuggestion records one served suggestion request.
func RecordSuggestion(urgency string, latencyMs float64, candidates int) {
	globalManager.suggestions.WithLabelValues(urgency).Inc()
	globalManager.suggestionLatency.Observe(latencyMs)
	globalManager.suggestionCandidates.Observe(float64(candidates))
}

// RecordSuggestionError records a rejected suggestion request.
func RecordSuggestionError(reason string) {
	globalManager.suggestionErrors.WithLabelValues(reason).Inc()
}

// UpdateRosterSize sets the roster size gauge.
func UpdateRosterSize(count int) {
	globalManager.rosterSize.Set(float64(count))
}

// RecordRosterUpdate counts a roster write.
func RecordRosterUpdate(operation string) {
	globalManager.rosterUpdates.WithLabelValues(operation).Inc()
}

// RecordEventProcessed increments the applied status events counter.
func RecordEventProcessed() {
	globalManager.eventsProcessed.Inc()
}

// RecordEventDuplicate increments the duplicate status events counter.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordEventFailed increments the failed status events counter.
func RecordEventFailed() {
	globalManager.eventsFailed.Inc()
}

// RecordKafkaMessage counts a consumed Kafka message by outcome.
func RecordKafkaMessage(result string) {
	globalManager.kafkaMessages.WithLabelValues(result).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
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

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
