package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Extraction outcomes used as the "outcome" label.
const (
	OutcomeSuccess     = "success"
	OutcomeEmptyInput  = "empty_input"
	OutcomeInvalidDate = "invalid_date"
	OutcomeError       = "error"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Extraction
	extractions       *prometheus.CounterVec
	extractionLatency prometheus.Histogram
	extractedFields   *prometheus.CounterVec

	// Event store
	eventsStored  prometheus.Gauge
	eventsCreated prometheus.Counter
	eventsDeleted prometheus.Counter
	storeLatency  *prometheus.HistogramVec
	storeErrors   *prometheus.CounterVec

	// Reminders
	remindersEnqueued  prometheus.Counter
	remindersSent      prometheus.Counter
	remindersFailed    prometheus.Counter
	remindersDuplicate prometheus.Counter
	reminderLateness   prometheus.Histogram
	scanDuration       prometheus.Histogram

	// Queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueue            prometheus.Counter
	queueDequeue            prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     *prometheus.CounterVec

	errorsByComponent *prometheus.CounterVec

	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

var globalManager = NewManager(WithPrometheusRegistry(customRegistry)) //nolint:gochecknoglobals // singleton manager

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "lichhen",
		subsystem:        "service",
		histogramBuckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
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

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.extractions = m.counterVec("extractions_total", "Extractions by outcome", "outcome")
	m.extractionLatency = m.histogram("extraction_latency_milliseconds", "Extraction latency in milliseconds", m.histogramBuckets)
	m.extractedFields = m.counterVec("extracted_fields_total", "Optional fields present in successful extractions", "field")

	m.eventsStored = m.gauge("events_stored", "Number of events in the store")
	m.eventsCreated = m.counter("events_created_total", "Events created")
	m.eventsDeleted = m.counter("events_deleted_total", "Events deleted")
	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Store operation latency in milliseconds", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Store operation failures", "op")

	m.remindersEnqueued = m.counter("reminders_enqueued_total", "Reminder jobs handed to the delivery queue")
	m.remindersSent = m.counter("reminders_sent_total", "Reminders delivered")
	m.remindersFailed = m.counter("reminders_failed_total", "Reminder deliveries that failed")
	m.remindersDuplicate = m.counter("reminders_duplicate_total", "Reminder jobs dropped as already delivered")
	m.reminderLateness = m.histogram("reminder_lateness_seconds", "Delay between the due time and delivery",
		[]float64{1, 5, 15, 30, 60, 120, 300, 900, 3600})
	m.scanDuration = m.histogram("reminder_scan_duration_milliseconds", "Duration of one due-reminder scan", m.histogramBuckets)

	m.queueSize = m.gauge("queue_size", "Current number of queued reminder jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of queued reminder jobs")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Jobs enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Jobs rejected by a full or closed queue")
	m.workerCount = m.gauge("worker_count", "Running delivery workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time to deliver one job", m.histogramBuckets)

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.httpRateLimited = m.counterVec("http_rate_limited_total", "Requests rejected by the rate limiter", "endpoint")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
}

// RecordExtraction records one extraction outcome and its latency.
func RecordExtraction(outcome string, latencyMs float64) {
	globalManager.extractions.WithLabelValues(outcome).Inc()
	globalManager.extractionLatency.Observe(latencyMs)
}

// RecordExtractedField counts a present optional field such as "location".
func RecordExtractedField(field string) {
	globalManager.extractedFields.WithLabelValues(field).Inc()
}

// UpdateEventsStored sets the stored events gauge.
func UpdateEventsStored(count int) {
	globalManager.eventsStored.Set(float64(count))
}

// RecordEventCreated increments the created events counter.
func RecordEventCreated() {
	globalManager.eventsCreated.Inc()
}

// RecordEventDeleted increments the deleted events counter.
func RecordEventDeleted() {
	globalManager.eventsDeleted.Inc()
}

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// RecordReminderEnqueued increments the enqueued reminders counter.
func RecordReminderEnqueued() {
	globalManager.remindersEnqueued.Inc()
}

// RecordReminderSent records a delivery and how late it was.
func RecordReminderSent(latenessSeconds float64) {
	globalManager.remindersSent.Inc()
	if latenessSeconds < 0 {
		latenessSeconds = 0
	}
	globalManager.reminderLateness.Observe(latenessSeconds)
}

// RecordReminderFailed increments the failed deliveries counter.
func RecordReminderFailed() {
	globalManager.remindersFailed.Inc()
}

// RecordReminderDuplicate increments the duplicate jobs counter.
func RecordReminderDuplicate() {
	globalManager.remindersDuplicate.Inc()
}

// RecordScanDuration records how long a due-reminder scan took.
func RecordScanDuration(latencyMs float64) {
	globalManager.scanDuration.Observe(latencyMs)
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
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited(endpoint string) {
	globalManager.httpRateLimited.WithLabelValues(endpoint).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
