package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic, the
// catalog cache and the pickup workflow.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	requestsSubmitted   prometheus.Counter
	requestsAssigned    prometheus.Counter
	deliveriesConfirmed *prometheus.CounterVec
	bookkeepingFailures *prometheus.CounterVec
	settlements         *prometheus.CounterVec
	photoUploads        *prometheus.CounterVec
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
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	requestsSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collection_requests_submitted_total",
		Help: "Collection requests stored by the submission flow",
	})

	requestsAssigned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collection_requests_assigned_total",
		Help: "Collection requests assigned to a collector",
	})

	deliveriesConfirmed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deliveries_confirmed_total",
		Help: "Deliveries confirmed by recycling centers",
	}, []string{"commission"})

	bookkeepingFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "earnings_bookkeeping_failures_total",
		Help: "Earnings ledger writes that failed after the primary change succeeded",
	}, []string{"flow"})

	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_settlements_total",
		Help: "Payment settlement job outcomes",
	}, []string{"result"})

	photoUploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pickup_photo_uploads_total",
		Help: "Pickup photo upload batches",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		requestsSubmitted, requestsAssigned, deliveriesConfirmed, bookkeepingFailures, settlements, photoUploads,
		goroutines,
	)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLatency:        cacheLatency,
		cacheWrite:          cacheWrite,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		requestsSubmitted:   requestsSubmitted,
		requestsAssigned:    requestsAssigned,
		deliveriesConfirmed: deliveriesConfirmed,
		bookkeepingFailures: bookkeepingFailures,
		settlements:         settlements,
		photoUploads:        photoUploads,
	}
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

func (m *MetricsService) RecordSubmission() {
	if m == nil {
		return
	}
	m.requestsSubmitted.Inc()
}

func (m *MetricsService) RecordAssignment() {
	if m == nil {
		return
	}
	m.requestsAssigned.Inc()
}

// RecordConfirmation counts a confirmed delivery, split by whether a commission was booked.
func (m *MetricsService) RecordConfirmation(commissionProcessed bool) {
	if m == nil {
		return
	}
	label := "none"
	if commissionProcessed {
		label = "paid"
	}
	m.deliveriesConfirmed.WithLabelValues(label).Inc()
}

// RecordBookkeepingFailure counts a failed earnings ledger write for the given flow.
func (m *MetricsService) RecordBookkeepingFailure(flow string) {
	if m == nil {
		return
	}
	m.bookkeepingFailures.WithLabelValues(flow).Inc()
}

// RecordSettlement counts a settlement job outcome (settled, skipped, failed).
func (m *MetricsService) RecordSettlement(result string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(result).Inc()
}

func (m *MetricsService) RecordPhotoUpload(success bool) {
	if m == nil {
		return
	}
	result := "failed"
	if success {
		result = "stored"
	}
	m.photoUploads.WithLabelValues(result).Inc()
}
