// Package metrics exposes the system's Prometheus registry, grounded in the
// teacher's internal/interfaces/http.MetricsRegistry (one struct holding
// every metric, registered once at startup, served over /metrics). Scaled
// down to this system's three observable surfaces — the HTTP query surface,
// the scheduled jobs, and the per-venue trackers — rather than the
// teacher's scan-pipeline/regime metrics, which have no analogue here.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric this system exports.
type Registry struct {
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	JobRuns     *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec

	TrackerReconnects *prometheus.CounterVec
	TrackerBufferSize *prometheus.GaugeVec
}

// New builds and registers the registry against prometheus's default
// registerer. Constructing more than one Registry per process will panic on
// duplicate registration, matching the teacher's MustRegister pattern.
func New() *Registry {
	r := &Registry{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perpwatch_http_requests_total",
			Help: "Total HTTP requests served by the query surface, by path, method and status code.",
		}, []string{"path", "method", "status"}),

		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perpwatch_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"path", "method"}),

		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perpwatch_job_runs_total",
			Help: "Total scheduled job executions, by job name and outcome.",
		}, []string{"job", "outcome"}),

		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perpwatch_job_duration_seconds",
			Help:    "Scheduled job execution time in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"job"}),

		TrackerReconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perpwatch_tracker_reconnects_total",
			Help: "Total reconnect attempts, by venue.",
		}, []string{"exchange"}),

		TrackerBufferSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "perpwatch_tracker_buffer_depth",
			Help: "Current in-memory snapshot buffer depth, by venue.",
		}, []string{"exchange"}),
	}

	prometheus.MustRegister(
		r.HTTPRequests, r.HTTPDuration,
		r.JobRuns, r.JobDuration,
		r.TrackerReconnects, r.TrackerBufferSize,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
