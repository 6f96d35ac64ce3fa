// Package metrics defines the Prometheus metric collectors used by the
// services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	PeselVerifications   *prometheus.CounterVec
	SearchBatchesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchDocuments      prometheus.Histogram
	SearchQueries        prometheus.Histogram
	ZeroResultQueries    prometheus.Counter
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	AuditWritesTotal     *prometheus.CounterVec
	AnalyticsDropped     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not panic.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		PeselVerifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pesel_verifications_total",
				Help: "PESEL verifications by result (valid, invalid, malformed).",
			},
			[]string{"result"},
		),
		SearchBatchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_batches_total",
				Help: "Index-and-query batches by outcome (ok, rejected, error).",
			},
			[]string{"outcome"},
		),
		SearchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_batch_latency_seconds",
				Help:    "Index-and-query batch latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchDocuments: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_batch_documents",
				Help:    "Number of documents per batch.",
				Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
			},
		),
		SearchQueries: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_batch_queries",
				Help:    "Number of queries per batch.",
				Buckets: []float64{0, 1, 5, 10, 50, 100, 500},
			},
		),
		ZeroResultQueries: f.NewCounter(
			prometheus.CounterOpts{
				Name: "search_zero_result_queries_total",
				Help: "Queries that matched no document.",
			},
		),
		CacheHitsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits.",
			},
		),
		CacheMissesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses.",
			},
		),
		AuditWritesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pesel_audit_writes_total",
				Help: "Audit log writes by status (ok, error, skipped).",
			},
			[]string{"status"},
		),
		AnalyticsDropped: f.NewCounter(
			prometheus.CounterOpts{
				Name: "analytics_events_dropped_total",
				Help: "Analytics events dropped because the buffer was full.",
			},
		),
		CircuitBreakerState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
