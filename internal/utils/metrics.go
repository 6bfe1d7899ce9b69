package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database Metrics
var DBQueryDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "db_query_duration_seconds",
	Help:    "Duration of database queries in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"query_type", "repository", "status"})

var DBQueryErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "db_query_errors_total",
	Help: "Total number of failed database queries.",
}, []string{"query_type", "repository"})

// ObserveQuery starts a timer for one repository call. The returned func
// records the duration and, when *errp is non-nil, an error.
func ObserveQuery(queryType, repository string) func(errp *error) {
	timer := prometheus.NewTimer(nil)
	return func(errp *error) {
		status := "success"
		if errp != nil && *errp != nil {
			status = "error"
			DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		}
		DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(timer.ObserveDuration().Seconds())
	}
}
