package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the register.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	recordsMarked   *prometheus.CounterVec
	recordsRejected *prometheus.CounterVec
	scanSubmissions prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	cacheLatency    prometheus.Observer
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

	recordsMarked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_records_marked_total",
		Help: "Attendance records created, by status",
	}, []string{"status"})

	recordsRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_rejections_total",
		Help: "Rejected ledger operations, by reason code",
	}, []string{"code"})

	scanSubmissions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scan_submissions_total",
		Help: "Decoded QR payloads submitted for ingestion",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	registry.MustRegister(requestDuration, requestTotal, recordsMarked, recordsRejected, scanSubmissions, cacheHits, cacheMisses, cacheLatency)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		recordsMarked:   recordsMarked,
		recordsRejected: recordsRejected,
		scanSubmissions: scanSubmissions,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		cacheLatency:    cacheLatency,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	m.requestDuration.With(labels).Observe(duration.Seconds())
	m.requestTotal.With(labels).Inc()
}

// RecordMarked counts a created attendance record.
func (m *MetricsService) RecordMarked(status string) {
	if m == nil {
		return
	}
	m.recordsMarked.WithLabelValues(status).Inc()
}

// RecordRejected counts a rejected ledger operation.
func (m *MetricsService) RecordRejected(code string) {
	if m == nil {
		return
	}
	m.recordsRejected.WithLabelValues(code).Inc()
}

// ScanSubmitted counts a decoded payload entering ingestion.
func (m *MetricsService) ScanSubmitted() {
	if m == nil {
		return
	}
	m.scanSubmissions.Inc()
}

// RecordCacheOperation tracks hit/miss and latency for cache lookups.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
	m.cacheLatency.Observe(duration.Seconds())
}
