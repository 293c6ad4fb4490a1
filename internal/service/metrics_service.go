package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API, the
// search index and the pagebrowser notifier.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	indexUpdates    *prometheus.CounterVec
	indexFailures   prometheus.Counter
	sequenceMoves   prometheus.Counter
	noticesSent     *prometheus.CounterVec
	noticesCoalesce prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers the collectors on a private registry.
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

	indexUpdates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "index_documents_updated_total",
		Help: "Index documents written per entity type",
	}, []string{"entity"})

	indexFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "index_update_failures_total",
		Help: "Index updates that failed and await the next reindex",
	})

	sequenceMoves := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scan_sequence_mutations_total",
		Help: "Sequence mutations taken under the scans table lock",
	})

	noticesSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pagebrowser_notices_total",
		Help: "Notices delivered to the pagebrowser",
	}, []string{"action"})

	noticesCoalesce := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pagebrowser_notices_coalesced_total",
		Help: "Notices suppressed inside the coalescing window",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pagelist_cache_hits_total",
		Help: "Pagelist responses served from cache",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pagelist_cache_misses_total",
		Help: "Pagelist responses rebuilt from the database",
	})

	registry.MustRegister(requestDuration, requestTotal, indexUpdates, indexFailures,
		sequenceMoves, noticesSent, noticesCoalesce, cacheHits, cacheMisses)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		indexUpdates:    indexUpdates,
		indexFailures:   indexFailures,
		sequenceMoves:   sequenceMoves,
		noticesSent:     noticesSent,
		noticesCoalesce: noticesCoalesce,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// ObserveQueueDepth registers a gauge sampling a worker queue backlog at
// scrape time.
func (m *MetricsService) ObserveQueueDepth(queue string, depth func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "job_queue_depth",
		Help:        "Jobs waiting for a worker",
		ConstLabels: prometheus.Labels{"queue": queue},
	}, func() float64 { return float64(depth()) }))
}

// Handler exposes the scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	return m.handler
}

// ObserveRequest records one finished HTTP request.
func (m *MetricsService) ObserveRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, code).Inc()
}

// IndexUpdated records written index documents.
func (m *MetricsService) IndexUpdated(entity string, count int) {
	m.indexUpdates.WithLabelValues(entity).Add(float64(count))
}

// IndexFailed records an index write that will be repaired by reindex.
func (m *MetricsService) IndexFailed() {
	m.indexFailures.Inc()
}

// SequenceMutated records one locked sequence mutation.
func (m *MetricsService) SequenceMutated() {
	m.sequenceMoves.Inc()
}

// NoticeSent records one delivered pagebrowser notice.
func (m *MetricsService) NoticeSent(action string) {
	m.noticesSent.WithLabelValues(action).Inc()
}

// NoticeCoalesced records a suppressed duplicate notice.
func (m *MetricsService) NoticeCoalesced() {
	m.noticesCoalesce.Inc()
}

// PagelistCacheHit records a pagelist served from cache.
func (m *MetricsService) PagelistCacheHit() {
	m.cacheHits.Inc()
}

// PagelistCacheMiss records a pagelist rebuilt from the database.
func (m *MetricsService) PagelistCacheMiss() {
	m.cacheMisses.Inc()
}
