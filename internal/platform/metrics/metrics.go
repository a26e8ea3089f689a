package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	JobsCreated  prometheus.Counter
	JobsFinished *prometheus.CounterVec
	JobDuration  prometheus.Histogram

	AdapterCalls    *prometheus.CounterVec
	AdapterFailures *prometheus.CounterVec

	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		JobsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "deepsearch_jobs_created_total",
			Help: "Total number of resolution jobs created",
		}),
		JobsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "deepsearch_jobs_finished_total",
			Help: "Resolution jobs by terminal status",
		}, []string{"status"}),
		JobDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "deepsearch_job_duration_seconds",
			Help:    "Wall-clock duration of the resolution pipeline",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		AdapterCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "deepsearch_adapter_calls_total",
			Help: "Source adapter invocations by adapter name",
		}, []string{"adapter"}),
		AdapterFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "deepsearch_adapter_failures_total",
			Help: "Source adapter failures (errors, timeouts, panics) by adapter name",
		}, []string{"adapter"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "deepsearch_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// ObserveJob records a finished job with its terminal status and duration.
func (m *Metrics) ObserveJob(status string, d time.Duration) {
	m.JobsFinished.WithLabelValues(status).Inc()
	m.JobDuration.Observe(d.Seconds())
}

// ObserveAdapter records one adapter invocation and whether it failed.
func (m *Metrics) ObserveAdapter(adapter string, failed bool) {
	m.AdapterCalls.WithLabelValues(adapter).Inc()
	if failed {
		m.AdapterFailures.WithLabelValues(adapter).Inc()
	}
}

// ObserveRequest records HTTP request latency.
func (m *Metrics) ObserveRequest(method, path string, d time.Duration) {
	m.RequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
