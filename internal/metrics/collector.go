// Package metrics exposes Prometheus metrics for the try-on operations and
// the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mhpenta/tryon"
)

// Collector records metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	// Model call metrics
	attemptsTotal  *prometheus.CounterVec
	retriesTotal   *prometheus.CounterVec
	backoffSeconds *prometheus.HistogramVec
	exhaustedTotal *prometheus.CounterVec
	fallbacksTotal *prometheus.CounterVec

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	sessionsActive      prometheus.Gauge
}

var _ tryon.Observer = (*Collector)(nil)

// NewCollector creates a collector. The registry also carries the Go and
// process collectors.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	c := &Collector{registry: reg}

	c.attemptsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_attempts_total",
			Help:      "Total number of attempts per operation",
		},
		[]string{"operation", "result"},
	)

	c.retriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_retries_total",
			Help:      "Total number of retries after a transient failure",
		},
		[]string{"operation"},
	)

	c.backoffSeconds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_backoff_seconds",
			Help:      "Wait before each retry in seconds",
			Buckets:   []float64{1, 2, 4, 8, 16, 32},
		},
		[]string{"operation"},
	)

	c.exhaustedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_retries_exhausted_total",
			Help:      "Total number of operations that ran out of attempts",
		},
		[]string{"operation"},
	)

	c.fallbacksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_fallbacks_total",
			Help:      "Total number of switches to a fallback model",
		},
		[]string{"operation", "from", "to"},
	)

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"method", "path"},
	)

	c.sessionsActive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Number of live styling sessions",
	})

	return c
}

// ObserveAttempt implements tryon.RetryObserver.
func (c *Collector) ObserveAttempt(operation string, attempt int, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	c.attemptsTotal.WithLabelValues(operation, result).Inc()
}

// ObserveRetry implements tryon.RetryObserver.
func (c *Collector) ObserveRetry(operation string, attempt int, delay time.Duration) {
	c.retriesTotal.WithLabelValues(operation).Inc()
	c.backoffSeconds.WithLabelValues(operation).Observe(delay.Seconds())
}

// ObserveExhausted implements tryon.RetryObserver.
func (c *Collector) ObserveExhausted(operation string, attempts int) {
	c.exhaustedTotal.WithLabelValues(operation).Inc()
}

// ObserveFallback implements tryon.Observer.
func (c *Collector) ObserveFallback(operation string, from, to tryon.Model) {
	c.fallbacksTotal.WithLabelValues(operation, string(from), string(to)).Inc()
}

// RecordHTTPRequest records one served request. path should be the route
// template, not the raw URL.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// SetActiveSessions sets the live session gauge.
func (c *Collector) SetActiveSessions(n int) {
	c.sessionsActive.Set(float64(n))
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
