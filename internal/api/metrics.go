package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "courier_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "courier_http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	recordsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_records_loaded_total",
			Help: "Uploaded records by dataset and outcome",
		},
		[]string{"dataset", "outcome"},
	)

	reconcileRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_reconcile_runs_total",
			Help: "Reconciliation runs by outcome",
		},
		[]string{"outcome"},
	)

	reconcileUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_reconcile_updated_rows_total",
			Help: "Order rows whose derived charges changed",
		},
	)
)

// Metrics records request count, latency and in-flight requests. Routes
// are labelled by their chi pattern to keep cardinality low.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := prometheus.Labels{"method": r.Method, "route": route, "status": strconv.Itoa(status)}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	})
}
