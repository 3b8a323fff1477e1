package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type httpMetrics struct {
	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	inflight        prometheus.Gauge
	lifecycleErrors *prometheus.CounterVec
}

var metrics = newHTTPMetrics(prometheus.DefaultRegisterer)

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	f := promauto.With(reg)
	labels := []string{"route", "method", "status"}
	return &httpMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modelcore", Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, labels),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "modelcore", Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{.005, .025, .1, .5, 1, 5, 30, 120},
		}, labels),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "modelcore", Subsystem: "http", Name: "inflight_requests",
			Help: "HTTP requests being served.",
		}),
		lifecycleErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modelcore", Subsystem: "http", Name: "lifecycle_errors_total",
			Help: "Failed load, unload and reload requests by status code.",
		}, []string{"action", "status"}),
	}
}

// MetricsMiddleware records the count, latency and concurrency of requests.
// Requests are labelled by chi route pattern, so it must run inside the
// router.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		metrics.inflight.Inc()
		defer metrics.inflight.Dec()

		next.ServeHTTP(ww, r)

		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		l := prometheus.Labels{"route": route(r), "method": r.Method, "status": strconv.Itoa(code)}
		metrics.requests.With(l).Inc()
		metrics.duration.With(l).Observe(time.Since(start).Seconds())
	})
}

// route is the matched chi pattern, or "unmatched" for requests no route
// served.
func route(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
