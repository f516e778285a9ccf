// Package metrics provides Prometheus metrics for the simcast engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus metric exposed by the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Run lifecycle
	runsCreated   prometheus.Counter
	runsPublished prometheus.Counter
	runsDeleted   prometheus.Counter
	runCount      prometheus.Gauge

	// Tally store
	talliesRecorded    prometheus.Counter
	talliesRejected    *prometheus.CounterVec
	storeUpdateLatency prometheus.Histogram
	storeQueryLatency  prometheus.Histogram

	// Ingest pipeline
	queueDepth         prometheus.Gauge
	queueCapacity      prometheus.Gauge
	batchesEnqueued    prometheus.Counter
	batchesDequeued    prometheus.Counter
	batchEnqueueErrors prometheus.Counter
	ingestWorkers      prometheus.Gauge
	runsIngested       prometheus.Counter
	ingestErrors       prometheus.Counter
	ingestLatency      prometheus.Histogram

	// Read path
	projectionLatency prometheus.Histogram

	// HTTP surface
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

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "simcast",
		subsystem:        "engine",
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
	factory := promauto.With(m.registry)

	m.runsCreated = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "runs_created_total",
		Help: "Simulation runs created.",
	})
	m.runsPublished = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "runs_published_total",
		Help: "Simulation runs made visible to latest-run queries.",
	})
	m.runsDeleted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "runs_deleted_total",
		Help: "Simulation runs deleted with their tallies.",
	})
	m.runCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "runs",
		Help: "Runs currently retained.",
	})

	m.talliesRecorded = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "tallies_recorded_total",
		Help: "Tallies accepted by the store.",
	})
	m.talliesRejected = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "tallies_rejected_total",
		Help: "Tallies rejected by the store, by reason.",
	}, []string{"reason"})
	m.storeUpdateLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "store_update_latency_ms",
		Help:    "Tally write latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})
	m.storeQueryLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "store_query_latency_ms",
		Help:    "Tally read latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})

	m.queueDepth = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_queue_depth",
		Help: "Batches waiting in the ingest queue.",
	})
	m.queueCapacity = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_queue_capacity",
		Help: "Configured ingest queue capacity.",
	})
	m.batchesEnqueued = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_batches_enqueued_total",
		Help: "Feed batches accepted into the ingest queue.",
	})
	m.batchesDequeued = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_batches_dequeued_total",
		Help: "Feed batches handed to ingest workers.",
	})
	m.batchEnqueueErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_enqueue_errors_total",
		Help: "Feed batches rejected at the queue (closed or full).",
	})
	m.ingestWorkers = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_workers",
		Help: "Running ingest workers.",
	})
	m.runsIngested = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "runs_ingested_total",
		Help: "Feed batches fully ingested and published.",
	})
	m.ingestErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_errors_total",
		Help: "Feed batches aborted during ingest.",
	})
	m.ingestLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "ingest_latency_ms",
		Help:    "Per-batch ingest latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})

	m.projectionLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "projection_latency_ms",
		Help:    "Probability projection latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds.",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers against the global manager.

func RecordRunCreated() {
	if globalManager.enabled {
		globalManager.runsCreated.Inc()
	}
}

func RecordRunPublished() {
	if globalManager.enabled {
		globalManager.runsPublished.Inc()
	}
}

func RecordRunDeleted() {
	if globalManager.enabled {
		globalManager.runsDeleted.Inc()
	}
}

func UpdateRunCount(n int) {
	if globalManager.enabled {
		globalManager.runCount.Set(float64(n))
	}
}

func RecordTallyRecorded() {
	if globalManager.enabled {
		globalManager.talliesRecorded.Inc()
	}
}

func RecordTallyRejected(reason string) {
	if globalManager.enabled {
		globalManager.talliesRejected.WithLabelValues(reason).Inc()
	}
}

func RecordStoreUpdateLatency(ms float64) {
	if globalManager.enabled {
		globalManager.storeUpdateLatency.Observe(ms)
	}
}

func RecordStoreQueryLatency(ms float64) {
	if globalManager.enabled {
		globalManager.storeQueryLatency.Observe(ms)
	}
}

func UpdateQueueDepth(n int) {
	if globalManager.enabled {
		globalManager.queueDepth.Set(float64(n))
	}
}

func UpdateQueueCapacity(n int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(n))
	}
}

func RecordBatchEnqueued() {
	if globalManager.enabled {
		globalManager.batchesEnqueued.Inc()
	}
}

func RecordBatchDequeued() {
	if globalManager.enabled {
		globalManager.batchesDequeued.Inc()
	}
}

func RecordBatchEnqueueError() {
	if globalManager.enabled {
		globalManager.batchEnqueueErrors.Inc()
	}
}

func UpdateIngestWorkers(n int) {
	if globalManager.enabled {
		globalManager.ingestWorkers.Set(float64(n))
	}
}

func RecordRunIngested() {
	if globalManager.enabled {
		globalManager.runsIngested.Inc()
	}
}

func RecordIngestError() {
	if globalManager.enabled {
		globalManager.ingestErrors.Inc()
	}
}

func RecordIngestLatency(ms float64) {
	if globalManager.enabled {
		globalManager.ingestLatency.Observe(ms)
	}
}

func RecordProjectionLatency(ms float64) {
	if globalManager.enabled {
		globalManager.projectionLatency.Observe(ms)
	}
}

func RecordHTTPRequest(endpoint, method, status string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
	}
}

func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
	}
}
