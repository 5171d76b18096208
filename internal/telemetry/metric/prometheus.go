package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kvmesh"

// Transport labels.
const (
	TransportHTTP  = "http"
	TransportRedis = "redis"
)

// Store operation results.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultConflict = "conflict"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// Registry holds all application metrics.
//
// A nil *Registry is valid and records nothing.
type Registry struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	StoreOperations *prometheus.CounterVec
}

// NewRegistry creates a registry with the kvmesh metrics and the Go and
// process collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total requests by transport, route and result code",
		}, []string{"transport", "route", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request latency by transport and route",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
		}, []string{"transport", "route"}),
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Storage operations by operation and result",
		}, []string{"op", "result"}),
	}

	r.registry.MustRegister(
		r.RequestsTotal,
		r.RequestDuration,
		r.StoreOperations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// ObserveRequest records one finished request.
func (r *Registry) ObserveRequest(transport, route, code string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(transport, route, code).Inc()
	r.RequestDuration.WithLabelValues(transport, route).Observe(elapsed.Seconds())
}

// ObserveStoreOp records one storage operation.
func (r *Registry) ObserveStoreOp(op, result string) {
	if r == nil {
		return
	}
	r.StoreOperations.WithLabelValues(op, result).Inc()
}

// RegisterKeyCount exposes count as the kvmesh_keys gauge.
// Calling it more than once returns an error.
func (r *Registry) RegisterKeyCount(count func() int) error {
	if r == nil {
		return nil
	}
	return r.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "keys",
		Help:      "Number of keys currently stored",
	}, func() float64 {
		return float64(count())
	}))
}

// Gatherer returns the underlying gatherer, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
