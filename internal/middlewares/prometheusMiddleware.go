package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMiddleware is a middleware that records Prometheus metrics for HTTP requests.
type PrometheusMiddleware struct {
	totalRequests   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
}

// NewPrometheusMiddleware registers the HTTP metrics with reg.
func NewPrometheusMiddleware(reg prometheus.Registerer) *PrometheusMiddleware {
	factory := promauto.With(reg)
	return &PrometheusMiddleware{
		totalRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		responseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "Size of HTTP responses in bytes.",
				Buckets: prometheus.ExponentialBuckets(64, 4, 8),
			},
			[]string{"method", "path", "status"},
		),
	}
}

// Instrument is the HTTP middleware function.
func (m *PrometheusMiddleware) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)

		next.ServeHTTP(rw, r)

		statusCode := strconv.Itoa(rw.statusCode)
		path := routeTemplate(r)
		method := r.Method

		m.totalRequests.WithLabelValues(method, path, statusCode).Inc()
		m.requestDuration.WithLabelValues(method, path, statusCode).Observe(time.Since(start).Seconds())
		m.responseSize.WithLabelValues(method, path, statusCode).Observe(float64(rw.bytesWritten))
	})
}

// routeTemplate keeps label cardinality bounded: unmatched paths share one
// label.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
