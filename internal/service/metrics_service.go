package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// allocation engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	allocationRuns  prometheus.Counter
	allocCreated    prometheus.Counter
	allocUnmet      prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec
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

	allocationRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "allocation_runs_total",
		Help: "Total number of completed allocation runs",
	})

	allocCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "allocation_assignments_created_total",
		Help: "Total assignments created by allocation runs",
	})

	allocUnmet := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "allocation_unmet_demands_total",
		Help: "Total demands left under-staffed by allocation runs",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, allocationRuns, allocCreated, allocUnmet, dbQueryDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		allocationRuns:  allocationRuns,
		allocCreated:    allocCreated,
		allocUnmet:      allocUnmet,
		dbQueryDuration: dbQueryDuration,
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

// ObserveHTTPRequest records one completed HTTP request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	m.requestDuration.With(labels).Observe(duration.Seconds())
	m.requestTotal.With(labels).Inc()
}

// ObserveAllocation records the outcome of one allocation run.
func (m *MetricsService) ObserveAllocation(assignmentsCreated, unmetDemands int) {
	if m == nil {
		return
	}
	m.allocationRuns.Inc()
	m.allocCreated.Add(float64(assignmentsCreated))
	m.allocUnmet.Add(float64(unmetDemands))
}

// ObserveDBQuery records one database query duration.
func (m *MetricsService) ObserveDBQuery(query string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.With(prometheus.Labels{"query": query}).Observe(duration.Seconds())
}
