// Package metrics holds the prometheus collectors of the dashboard service.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name
const DefaultNamespace = "dbtest_dashboard"

// ClientMetrics records the outcome of backend calls made by the API client
type ClientMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewClientMetrics creates the client collectors and registers them on reg
func NewClientMetrics(namespace string, reg prometheus.Registerer) (*ClientMetrics, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &ClientMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Backend calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Latency of backend calls.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 10),
		}, []string{"operation"}),
	}

	requests, err := register(reg, m.requests)
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, m.duration)
	if err != nil {
		return nil, err
	}
	m.requests = requests.(*prometheus.CounterVec)
	m.duration = duration.(*prometheus.HistogramVec)

	return m, nil
}

// Observe records one call
func (m *ClientMetrics) Observe(operation, outcome string, duration time.Duration) {
	m.requests.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// HTTPMetrics records requests served by the mock backend
type HTTPMetrics struct {
	requests *prometheus.CounterVec
}

// NewHTTPMetrics creates the server collectors and registers them on reg
func NewHTTPMetrics(namespace string, reg prometheus.Registerer) (*HTTPMetrics, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served by route and status.",
		}, []string{"method", "route", "status"}),
	}

	requests, err := register(reg, m.requests)
	if err != nil {
		return nil, err
	}
	m.requests = requests.(*prometheus.CounterVec)

	return m, nil
}

// Observe records one served request
func (m *HTTPMetrics) Observe(method, route, status string) {
	m.requests.WithLabelValues(method, route, status).Inc()
}

// register returns the already registered collector when an identical one
// exists, so two components can share one registry
func register(reg prometheus.Registerer, c prometheus.Collector) (prometheus.Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector, nil
		}
		return nil, err
	}
	return c, nil
}
