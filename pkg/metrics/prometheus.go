package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus metrics for the rally service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Linking
	autoLinkBatches        *prometheus.CounterVec
	autoLinkResults        *prometheus.CounterVec
	autoLinkBatchDuration  prometheus.Histogram
	suggestionsServed      prometheus.Counter
	suggestionCandidates   prometheus.Histogram
	unlinkedResults        prometheus.Gauge
	participantsTotal      prometheus.Gauge
	manualLinkOperations   *prometheus.CounterVec
	aliasConflictsDetected prometheus.Gauge

	// Results and standings
	resultsSubmitted     *prometheus.CounterVec
	resultStatusChanges  *prometheus.CounterVec
	standingsComputed    *prometheus.CounterVec
	standingsComputeTime prometheus.Histogram

	// Repository
	repositoryQueryLatency *prometheus.HistogramVec

	// Background jobs
	jobQueueSize  prometheus.Gauge
	jobEnqueues   *prometheus.CounterVec
	jobsProcessed *prometheus.CounterVec
	jobLatency    prometheus.Histogram
	workerBusy    prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// global holds the active manager and the registry it is registered on.
type global struct {
	manager  *Manager
	registry *prometheus.Registry
}

var current atomic.Pointer[global] //nolint:gochecknoglobals // process-wide metrics

func init() { //nolint:gochecknoinits // recording works before Configure is called
	Configure()
}

// Configure replaces the global manager with one built from opts on a
// fresh registry and returns that registry. Handlers built from
// GetRegistry before the call keep serving the old one, so call it once
// at startup.
func Configure(opts ...Option) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	opts = append(opts, WithPrometheusRegistry(registry))
	current.Store(&global{manager: NewManager(opts...), registry: registry})
	return registry
}

func manager() *Manager { return current.Load().manager }

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rally",
		subsystem:        "results",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.autoLinkBatches = auto.NewCounterVec(
		m.counterOpts("autolink_batches_total", "Auto-link batches by outcome (ok, error, rejected)"),
		[]string{"outcome"},
	)
	m.autoLinkResults = auto.NewCounterVec(
		m.counterOpts("autolink_results_total", "Results handled by auto-link batches by outcome"),
		[]string{"outcome"},
	)
	m.autoLinkBatchDuration = auto.NewHistogram(
		m.histogramOpts("autolink_batch_duration_seconds", "Wall time of one auto-link batch", m.histogramBuckets),
	)
	m.suggestionsServed = auto.NewCounter(
		m.counterOpts("suggestions_served_total", "Suggestion lookups answered"),
	)
	m.suggestionCandidates = auto.NewHistogram(
		m.histogramOpts("suggestion_candidates", "Candidates returned per suggestion lookup", []float64{0, 1, 2, 3, 5, 10, 20}),
	)
	m.unlinkedResults = auto.NewGauge(
		m.gaugeOpts("unlinked_results", "Result rows without a canonical participant"),
	)
	m.participantsTotal = auto.NewGauge(
		m.gaugeOpts("participants", "Canonical participants known"),
	)
	m.manualLinkOperations = auto.NewCounterVec(
		m.counterOpts("manual_link_operations_total", "Manual link, unlink and alias operations"),
		[]string{"operation"},
	)
	m.aliasConflictsDetected = auto.NewGauge(
		m.gaugeOpts("alias_conflicts", "Alias keys attached to more than one participant at last check"),
	)

	m.resultsSubmitted = auto.NewCounterVec(
		m.counterOpts("results_submitted_total", "Result rows submitted by source (json, html)"),
		[]string{"source"},
	)
	m.resultStatusChanges = auto.NewCounterVec(
		m.counterOpts("result_status_changes_total", "Result status transitions by target status"),
		[]string{"status"},
	)
	m.standingsComputed = auto.NewCounterVec(
		m.counterOpts("standings_computed_total", "Standings tables computed by championship kind"),
		[]string{"kind"},
	)
	m.standingsComputeTime = auto.NewHistogram(
		m.histogramOpts("standings_compute_milliseconds", "Time to load and compute one standings table", []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)

	m.repositoryQueryLatency = auto.NewHistogramVec(
		m.histogramOpts("repository_query_latency_milliseconds", "Repository operation latency by operation", []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500}),
		[]string{"operation"},
	)

	m.jobQueueSize = auto.NewGauge(m.gaugeOpts("job_queue_size", "Auto-link jobs waiting for the worker"))
	m.jobEnqueues = auto.NewCounterVec(
		m.counterOpts("job_enqueues_total", "Auto-link job enqueue attempts by outcome (accepted, coalesced, closed, cancelled)"),
		[]string{"outcome"},
	)
	m.jobsProcessed = auto.NewCounterVec(
		m.counterOpts("jobs_processed_total", "Auto-link jobs run by the worker by outcome"),
		[]string{"outcome"},
	)
	m.jobLatency = auto.NewHistogram(
		m.histogramOpts("job_latency_milliseconds", "Time from enqueue to job completion", []float64{10, 50, 100, 250, 500, 1000, 5000, 30000}),
	)
	m.workerBusy = auto.NewGauge(m.gaugeOpts("worker_busy", "1 while the auto-link worker runs a job"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and error type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and error type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100}),
	)
}

// RecordAutoLinkBatch counts one batch with outcome ok, error or rejected.
func RecordAutoLinkBatch(outcome string) {
	manager().autoLinkBatches.WithLabelValues(outcome).Inc()
}

// RecordAutoLinkSummary adds the per-result counts of a finished batch.
func RecordAutoLinkSummary(linked, created, skipped, failed int, seconds float64) {
	m := manager()
	m.autoLinkResults.WithLabelValues("linked").Add(float64(linked))
	m.autoLinkResults.WithLabelValues("created").Add(float64(created))
	m.autoLinkResults.WithLabelValues("skipped").Add(float64(skipped))
	m.autoLinkResults.WithLabelValues("failed").Add(float64(failed))
	m.autoLinkBatchDuration.Observe(seconds)
}

// RecordSuggestionsServed counts a suggestion lookup and its result size.
func RecordSuggestionsServed(candidates int) {
	manager().suggestionsServed.Inc()
	manager().suggestionCandidates.Observe(float64(candidates))
}

// UpdateUnlinkedResults sets the number of unlinked result rows.
func UpdateUnlinkedResults(count int) {
	manager().unlinkedResults.Set(float64(count))
}

// UpdateParticipants sets the number of canonical participants.
func UpdateParticipants(count int) {
	manager().participantsTotal.Set(float64(count))
}

// RecordManualLinkOperation counts link, unlink, alias and create operations.
func RecordManualLinkOperation(operation string) {
	manager().manualLinkOperations.WithLabelValues(operation).Inc()
}

// UpdateAliasConflicts sets the number of conflicting alias keys.
func UpdateAliasConflicts(count int) {
	manager().aliasConflictsDetected.Set(float64(count))
}

// RecordResultsSubmitted counts submitted rows by source.
func RecordResultsSubmitted(source string, rows int) {
	manager().resultsSubmitted.WithLabelValues(source).Add(float64(rows))
}

// RecordResultStatusChange counts rows moved to status.
func RecordResultStatusChange(status string, rows int) {
	manager().resultStatusChanges.WithLabelValues(status).Add(float64(rows))
}

// RecordStandingsComputed counts a computed table and its latency.
func RecordStandingsComputed(kind string, latencyMs float64) {
	manager().standingsComputed.WithLabelValues(kind).Inc()
	manager().standingsComputeTime.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records a repository operation latency.
func RecordRepositoryQueryLatency(operation string, latencyMs float64) {
	manager().repositoryQueryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateJobQueueSize sets the number of waiting jobs.
func UpdateJobQueueSize(size int) {
	manager().jobQueueSize.Set(float64(size))
}

// RecordJobEnqueue counts an enqueue attempt.
func RecordJobEnqueue(outcome string) {
	manager().jobEnqueues.WithLabelValues(outcome).Inc()
}

// RecordJobProcessed counts a finished job and its end-to-end latency.
func RecordJobProcessed(outcome string, latencyMs float64) {
	manager().jobsProcessed.WithLabelValues(outcome).Inc()
	manager().jobLatency.Observe(latencyMs)
}

// UpdateWorkerBusy flags whether the worker is running a job.
func UpdateWorkerBusy(busy bool) {
	if busy {
		manager().workerBusy.Set(1)
		return
	}
	manager().workerBusy.Set(0)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	manager().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	manager().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	manager().errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	manager().errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap allocation in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	manager().systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	manager().systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	manager().systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return current.Load().registry
}
