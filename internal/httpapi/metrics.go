package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestLabels = []string{"route", "method", "status"}

	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "engined",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Admin API requests by route, method and status.",
	}, requestLabels)

	requestSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "engined",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Admin API request latency. Activations include the download.",
		Buckets:   []float64{.005, .025, .1, .5, 1, 5, 30, 120, 600},
	}, requestLabels)

	inflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "engined",
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Admin API requests being served.",
	})

	activationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "engined",
		Subsystem: "http",
		Name:      "activations_total",
		Help:      "Version activations requested through the API, by HTTP status.",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(requestsTotal, requestSeconds, inflight, activationsTotal)
}

// MetricsMiddleware records request counts and latency labelled by chi route
// pattern. Requests that match no route are labelled "unmatched".
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inflight.Inc()
		defer inflight.Dec()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		labels := prometheus.Labels{"route": routeLabel(r), "method": r.Method, "status": strconv.Itoa(code)}
		requestsTotal.With(labels).Inc()
		requestSeconds.With(labels).Observe(time.Since(start).Seconds())
	})
}

// routeLabel is read after routing; chi only knows the pattern once a route matched.
func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
