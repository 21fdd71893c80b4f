package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic, caching and the scheduling engine.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	cacheLatency       prometheus.Observer
	cacheWrite         prometheus.Observer
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	snapshotDuration   *prometheus.HistogramVec
	schedulingTotal    *prometheus.CounterVec
	schedulingDuration prometheus.Observer
	conflictsTotal     *prometheus.CounterVec
	degradedTotal      *prometheus.CounterVec
	commitsTotal       *prometheus.CounterVec
	suggestionsCount   prometheus.Observer
	optimizationScore  prometheus.Observer
}

// NewMetricsService registers core Prometheus collectors. queueDepth may be nil.
func NewMetricsService(queueDepth func() int) *MetricsService {
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	snapshotDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scheduling_snapshot_duration_seconds",
		Help:    "Duration of snapshot reads feeding the scheduling engine",
		Buckets: prometheus.DefBuckets,
	}, []string{"snapshot"})

	schedulingTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_requests_total",
		Help: "Scheduling requests by final state",
	}, []string{"state"})

	schedulingDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduling_request_duration_seconds",
		Help:    "End to end scheduling request latency",
		Buckets: prometheus.DefBuckets,
	})

	conflictsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_conflicts_total",
		Help: "Detected conflicts by type and outcome",
	}, []string{"type", "outcome"})

	degradedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scoring_degraded_total",
		Help: "Scores that fell back to defaults because a collaborator failed",
	}, []string{"dimension"})

	commitsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_commits_total",
		Help: "Class commits by outcome",
	}, []string{"outcome"})

	suggestionsCount := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "makeup_suggestions_returned",
		Help:    "Number of make-up suggestions returned per request",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 10, 20},
	})

	optimizationScore := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "optimization_confidence",
		Help:    "Confidence of the base optimization solution",
		Buckets: []float64{0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		snapshotDuration, schedulingTotal, schedulingDuration, conflictsTotal, degradedTotal, commitsTotal,
		suggestionsCount, optimizationScore, goroutines)

	if queueDepth != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "scheduling_queue_depth",
			Help: "Queued plus in-progress asynchronous scheduling requests",
		}, func() float64 {
			return float64(queueDepth())
		}))
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		snapshotDuration:   snapshotDuration,
		schedulingTotal:    schedulingTotal,
		schedulingDuration: schedulingDuration,
		conflictsTotal:     conflictsTotal,
		degradedTotal:      degradedTotal,
		commitsTotal:       commitsTotal,
		suggestionsCount:   suggestionsCount,
		optimizationScore:  optimizationScore,
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

// ObserveSnapshot records how long a snapshot read took.
func (m *MetricsService) ObserveSnapshot(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.snapshotDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordScheduling counts a finished request.
func (m *MetricsService) RecordScheduling(state string, duration time.Duration) {
	if m == nil {
		return
	}
	m.schedulingTotal.WithLabelValues(state).Inc()
	m.schedulingDuration.Observe(duration.Seconds())
}

// RecordConflict counts a detected conflict with its outcome (resolved or unresolved).
func (m *MetricsService) RecordConflict(conflictType, outcome string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(conflictType, outcome).Inc()
}

// RecordDegraded counts a dimension that fell back to its default or was bypassed.
func (m *MetricsService) RecordDegraded(dimension string) {
	if m == nil {
		return
	}
	m.degradedTotal.WithLabelValues(dimension).Inc()
}

// RecordCommit counts a commit outcome (accepted, rejected, error).
func (m *MetricsService) RecordCommit(outcome string) {
	if m == nil {
		return
	}
	m.commitsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSuggestions records the size of a make-up suggestion list.
func (m *MetricsService) ObserveSuggestions(count int) {
	if m == nil {
		return
	}
	m.suggestionsCount.Observe(float64(count))
}

// ObserveOptimization records the base solution confidence.
func (m *MetricsService) ObserveOptimization(confidence float64) {
	if m == nil {
		return
	}
	m.optimizationScore.Observe(confidence)
}
