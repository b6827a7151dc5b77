// Package metrics provides Prometheus metrics for the starboard scheduler.
package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// Scheduling
	boardsGenerated   *prometheus.CounterVec
	slotsAssigned     prometheus.Counter
	slotsUnassigned   prometheus.Counter
	starsConsumed     prometheus.Counter
	noEligible        prometheus.Counter
	toggles           *prometheus.CounterVec
	conflictsDetected *prometheus.CounterVec
	conflictsResolved *prometheus.CounterVec
	conflictsPending  prometheus.Gauge

	// Roster
	coordinatorsTotal     prometheus.Gauge
	coordinatorsAvailable prometheus.Gauge

	// Audit queue
	auditQueueSize     prometheus.Gauge
	auditQueueCapacity prometheus.Gauge
	auditEnqueued      prometheus.Counter
	auditFallback      *prometheus.CounterVec
	auditWriteLatency  prometheus.Histogram
	auditWriteErrors   prometheus.Counter

	// Persistence
	storeOperations *prometheus.CounterVec
	storeLatency    *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "starboard",
		subsystem:        "scheduler",
		histogramBuckets: prometheus.DefBuckets,
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

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.httpRequests = m.counterVec("http_requests_total", "Total HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_seconds",
		Help:        "HTTP request latency in seconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.httpErrors = m.counterVec("http_errors_total", "HTTP responses with an error body", "endpoint", "method", "error_type")

	m.boardsGenerated = m.counterVec("boards_generated_total", "Monthly boards written by generation or regeneration", "mode")
	m.slotsAssigned = m.counter("slots_assigned_total", "Slots filled by the weighted picker")
	m.slotsUnassigned = m.counter("slots_unassigned_total", "Slots left empty because nobody was eligible")
	m.starsConsumed = m.counter("stars_consumed_total", "Star credits spent by automatic picks")
	m.noEligible = m.counter("no_eligible_total", "Slot edits that found no eligible coordinator")
	m.toggles = m.counterVec("toggles_total", "Joined and youth toggles", "flag", "state")
	m.conflictsDetected = m.counterVec("conflicts_detected_total", "Duplicate names detected", "trigger")
	m.conflictsResolved = m.counterVec("conflicts_resolved_total", "Conflicts closed", "resolution")
	m.conflictsPending = m.gauge("conflicts_pending", "Conflicts awaiting resolution")

	m.coordinatorsTotal = m.gauge("coordinators_total", "Coordinators on the roster")
	m.coordinatorsAvailable = m.gauge("coordinators_available", "Coordinators currently available")

	m.auditQueueSize = m.gauge("audit_queue_size", "Audit events waiting to be written")
	m.auditQueueCapacity = m.gauge("audit_queue_capacity", "Audit queue capacity")
	m.auditEnqueued = m.counter("audit_enqueued_total", "Audit events queued for the writer")
	m.auditFallback = m.counterVec("audit_sync_writes_total", "Audit events written inline because the queue refused them", "reason")
	m.auditWriteLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "audit_write_duration_seconds",
		Help:        "Latency of writing one audit event",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})
	m.auditWriteErrors = m.counter("audit_write_errors_total", "Audit events that failed to persist")

	m.storeOperations = m.counterVec("store_operations_total", "Persistence calls", "backend", "operation", "result")
	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_operation_duration_seconds",
		Help:        "Persistence call latency in seconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"backend", "operation"})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, seconds float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(seconds)
}

// RecordErrorByEndpoint records an error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordBoardsGenerated counts boards written in one run.
func RecordBoardsGenerated(mode string, n int) {
	globalManager.boardsGenerated.WithLabelValues(mode).Add(float64(n))
}

// RecordSlots counts picker outcomes.
func RecordSlots(assigned, unassigned int) {
	globalManager.slotsAssigned.Add(float64(assigned))
	globalManager.slotsUnassigned.Add(float64(unassigned))
}

// RecordStarsConsumed counts spent star credits.
func RecordStarsConsumed(n int) {
	if n > 0 {
		globalManager.starsConsumed.Add(float64(n))
	}
}

// RecordNoEligible counts slot edits left empty.
func RecordNoEligible() {
	globalManager.noEligible.Inc()
}

// RecordToggle counts a joined/youth toggle.
func RecordToggle(flag string, on bool) {
	state := "off"
	if on {
		state = "on"
	}
	globalManager.toggles.WithLabelValues(flag, state).Inc()
}

// RecordConflictDetected counts a raised conflict.
func RecordConflictDetected(trigger string) {
	globalManager.conflictsDetected.WithLabelValues(trigger).Inc()
}

// RecordConflictResolved counts a closed conflict.
func RecordConflictResolved(resolution string) {
	globalManager.conflictsResolved.WithLabelValues(resolution).Inc()
}

// UpdateConflictsPending sets the number of open conflicts.
func UpdateConflictsPending(n int) {
	globalManager.conflictsPending.Set(float64(n))
}

// UpdateRoster sets roster gauges.
func UpdateRoster(total, available int) {
	globalManager.coordinatorsTotal.Set(float64(total))
	globalManager.coordinatorsAvailable.Set(float64(available))
}

// UpdateAuditQueueSize sets the number of queued audit events.
func UpdateAuditQueueSize(n int) {
	globalManager.auditQueueSize.Set(float64(n))
}

// UpdateAuditQueueCapacity sets the audit queue capacity.
func UpdateAuditQueueCapacity(n int) {
	globalManager.auditQueueCapacity.Set(float64(n))
}

// RecordAuditEnqueued counts an event handed to the queue.
func RecordAuditEnqueued() {
	globalManager.auditEnqueued.Inc()
}

// RecordAuditFallback counts an event written inline.
func RecordAuditFallback(reason string) {
	globalManager.auditFallback.WithLabelValues(reason).Inc()
}

// RecordAuditWrite records one audit write.
func RecordAuditWrite(seconds float64, err error) {
	globalManager.auditWriteLatency.Observe(seconds)
	if err != nil {
		globalManager.auditWriteErrors.Inc()
	}
}

// ObserveStoreOperation records one persistence call.
func ObserveStoreOperation(backend, operation string, seconds float64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	globalManager.storeOperations.WithLabelValues(backend, operation, result).Inc()
	globalManager.storeLatency.WithLabelValues(backend, operation).Observe(seconds)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

var runtimeOnce sync.Once //nolint:gochecknoglobals // guards RegisterRuntimeCollectors

// RegisterRuntimeCollectors adds the Go runtime and process collectors to
// the custom registry. Calling it more than once is a no-op.
func RegisterRuntimeCollectors() error {
	var err error
	runtimeOnce.Do(func() {
		err = errors.Join(
			customRegistry.Register(collectors.NewGoCollector()),
			customRegistry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})),
		)
	})
	return err
}
