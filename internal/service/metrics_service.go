package service

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/ctos-api/internal/models"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec
	storageFailures *prometheus.CounterVec
	roleSwitches    *prometheus.CounterVec
	documentEvents  *prometheus.CounterVec
	exportJobs      *prometheus.CounterVec
	droppedJobs     *prometheus.CounterVec

	queueMu sync.RWMutex
	queues  map[string]func() int

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	dbQueryCount         uint64
	dbQueryDurationTotal uint64
	unavailableCount     uint64
	deniedCount          uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	storageFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_failures_total",
		Help: "Repository failures by kind",
	}, []string{"kind"})

	roleSwitches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "role_switches_total",
		Help: "Active role switches by target role",
	}, []string{"role"})

	documentEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "document_events_total",
		Help: "Document mutations and downloads by action",
	}, []string{"action"})

	exportJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "export_jobs_total",
		Help: "Report export jobs by type and final status",
	}, []string{"type", "status"})

	droppedJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_dropped_total",
		Help: "Background jobs abandoned after a permanent failure or exhausted retries",
	}, []string{"queue", "type"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		dbQueryDuration, storageFailures, roleSwitches, documentEvents, exportJobs, droppedJobs, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		dbQueryDuration: dbQueryDuration,
		storageFailures: storageFailures,
		roleSwitches:    roleSwitches,
		documentEvents:  documentEvents,
		exportJobs:      exportJobs,
		droppedJobs:     droppedJobs,
		queues:          make(map[string]func() int),
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing and classifies failures.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.dbQueryCount, 1)
	atomic.AddUint64(&m.dbQueryDurationTotal, uint64(duration.Nanoseconds()))

	switch {
	case err == nil:
	case errors.Is(err, appErrors.ErrStorageUnavailable):
		m.storageFailures.WithLabelValues("unavailable").Inc()
		atomic.AddUint64(&m.unavailableCount, 1)
	case errors.Is(err, appErrors.ErrPermissionDenied):
		m.storageFailures.WithLabelValues("permission_denied").Inc()
		atomic.AddUint64(&m.deniedCount, 1)
	}
}

// RecordRoleSwitch counts a successful switch to role.
func (m *MetricsService) RecordRoleSwitch(role models.UserRole) {
	if m == nil {
		return
	}
	m.roleSwitches.WithLabelValues(string(role)).Inc()
}

// RecordDocumentEvent counts a document action such as upload or download.
func (m *MetricsService) RecordDocumentEvent(action models.AuditAction) {
	if m == nil {
		return
	}
	m.documentEvents.WithLabelValues(string(action)).Inc()
}

// RecordExportJob counts a finished export job.
func (m *MetricsService) RecordExportJob(reportType models.ReportType, status models.ReportStatus) {
	if m == nil {
		return
	}
	m.exportJobs.WithLabelValues(string(reportType), string(status)).Inc()
}

// TrackQueue exposes the buffered depth of a job queue as queue_depth{queue=name}.
func (m *MetricsService) TrackQueue(name string, depth func() int) {
	if m == nil || depth == nil {
		return
	}
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	if _, exists := m.queues[name]; exists {
		return
	}
	m.queues[name] = depth
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "queue_depth",
		Help:        "Jobs buffered in a queue waiting for a worker",
		ConstLabels: prometheus.Labels{"queue": name},
	}, func() float64 {
		return float64(depth())
	}))
}

// RecordDroppedJob counts a job the queue abandoned.
func (m *MetricsService) RecordDroppedJob(queue, jobType string) {
	if m == nil {
		return
	}
	m.droppedJobs.WithLabelValues(queue, jobType).Inc()
}

// Snapshot returns aggregated metrics suitable for the admin metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	dbCount := atomic.LoadUint64(&m.dbQueryCount)
	dbDuration := atomic.LoadUint64(&m.dbQueryDurationTotal)

	var cacheRatio float64
	totalLookups := hits + misses
	if totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgDBMs float64
	if dbCount > 0 {
		avgDBMs = float64(dbDuration) / float64(dbCount) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		DBQueryCount:             dbCount,
		AverageDBQueryDurationMs: avgDBMs,
		StorageFailures: map[string]uint64{
			"unavailable":       atomic.LoadUint64(&m.unavailableCount),
			"permission_denied": atomic.LoadUint64(&m.deniedCount),
		},
		QueueDepth:  m.queueDepths(),
		Goroutines:  runtime.NumGoroutine(),
		GeneratedAt: time.Now().UTC(),
	}
}

func (m *MetricsService) queueDepths() map[string]int {
	m.queueMu.RLock()
	defer m.queueMu.RUnlock()
	depths := make(map[string]int, len(m.queues))
	for name, depth := range m.queues {
		depths[name] = depth()
	}
	return depths
}
