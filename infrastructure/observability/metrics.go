// Package observability wires logging, metrics and tracing for the gateway.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics of one process. Each collector owns
// its registry so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec
	BreakerState    *prometheus.GaugeVec

	BusMessages *prometheus.CounterVec
	BusDuration *prometheus.HistogramVec

	SessionsInitialized *prometheus.CounterVec
	NodesRemoved        prometheus.Counter
}

// NewCollector creates and registers every metric under namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "op", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "op"}),
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of graph store operations",
		}, []string{"operation", "status"}),
		StoreDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Graph store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"name"}),
		BusMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_messages_total",
			Help:      "Commands and queries dispatched through the buses",
		}, []string{"bus", "message", "status"}),
		BusDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bus_message_duration_seconds",
			Help:      "Command and query handling duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"bus", "message"}),
		SessionsInitialized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_initialized_total",
			Help:      "Sessions seeded or adopted, by outcome",
		}, []string{"outcome"}),
		NodesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_removed_total",
			Help:      "Nodes deleted by cascading removes",
		}),
	}

	c.registry.MustRegister(
		c.HTTPRequests, c.HTTPDuration,
		c.StoreOperations, c.StoreDuration, c.BreakerState,
		c.BusMessages, c.BusDuration,
		c.SessionsInitialized, c.NodesRemoved,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, op, status string, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, op, status).Inc()
	c.HTTPDuration.WithLabelValues(method, op).Observe(d.Seconds())
}

// RecordStoreOperation records one graph store call.
func (c *Collector) RecordStoreOperation(op string, err error, d time.Duration) {
	c.StoreOperations.WithLabelValues(op, statusLabel(err)).Inc()
	c.StoreDuration.WithLabelValues(op).Observe(d.Seconds())
}

// RecordBusMessage records one command or query.
func (c *Collector) RecordBusMessage(bus, message string, err error, d time.Duration) {
	c.BusMessages.WithLabelValues(bus, message, statusLabel(err)).Inc()
	c.BusDuration.WithLabelValues(bus, message).Observe(d.Seconds())
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveSessionInit counts one initialization by outcome
// (seeded, reseeded, adopted, skipped).
func (c *Collector) ObserveSessionInit(outcome string) {
	c.SessionsInitialized.WithLabelValues(outcome).Inc()
}

// ObserveNodesRemoved adds to the cascading-delete node counter.
func (c *Collector) ObserveNodesRemoved(n int) {
	c.NodesRemoved.Add(float64(n))
}
