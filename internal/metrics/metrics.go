package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics on a private registry
type Metrics struct {
	registry *prometheus.Registry

	// Core operations
	OperationsTotal *prometheus.CounterVec

	// Remote fetches
	FetchBytes    *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec

	// HTTP surface
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates a metrics collector with its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediafs_operations_total",
				Help: "Completed filesystem operations by outcome",
			},
			[]string{"op", "status"},
		),
		FetchBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediafs_fetch_bytes_total",
				Help: "Bytes written to disk from remote sources",
			},
			[]string{"transport"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mediafs_fetch_duration_seconds",
				Help:    "Duration of remote fetches including the disk write",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"transport"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediafs_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mediafs_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordOperation counts a finished operation. status is the result status
// or the error kind.
func (m *Metrics) RecordOperation(op, status string) {
	m.OperationsTotal.WithLabelValues(op, status).Inc()
}

// RecordFetch records a completed fetch
func (m *Metrics) RecordFetch(transport string, bytes int64, d time.Duration) {
	m.FetchBytes.WithLabelValues(transport).Add(float64(bytes))
	m.FetchDuration.WithLabelValues(transport).Observe(d.Seconds())
}

// RecordRequest records an HTTP request
func (m *Metrics) RecordRequest(method, path, status string, d time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
