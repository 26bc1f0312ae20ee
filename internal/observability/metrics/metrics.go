package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiometry_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "audiometry_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiometry_logins_total",
		Help: "Count of login attempts by result",
	}, []string{"result"})

	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiometry_test_submissions_total",
		Help: "Count of hearing-test submissions by result",
	}, []string{"result"})

	searchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audiometry_profile_searches_total",
		Help: "Count of profile search queries",
	})

	testsDueSoon = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audiometry_tests_due_soon",
		Help: "Number of stored hearing tests whose next test is due within the reminder horizon",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveLogin counts a login attempt with its result
func ObserveLogin(result string) {
	loginsTotal.WithLabelValues(result).Inc()
}

// ObserveSubmission counts a hearing-test submission with its result
func ObserveSubmission(result string) {
	submissionsTotal.WithLabelValues(result).Inc()
}

// ObserveSearch counts a profile search query
func ObserveSearch() {
	searchesTotal.Inc()
}

// SetTestsDueSoon sets the due-soon gauge, reported by the reminder worker
func SetTestsDueSoon(count int) {
	if count < 0 {
		count = 0
	}
	testsDueSoon.Set(float64(count))
}
