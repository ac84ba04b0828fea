// Package metrics exposes Prometheus counters for route submissions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "routetree"

// Metrics holds the collectors recorded by the route service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	created  prometheus.Counter
	rejected *prometheus.CounterVec
	routes   prometheus.Gauge
}

// New creates the collectors on a dedicated registry, together with the
// standard Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routes_created_total",
			Help:      "Routes committed to the tree.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_validation_failures_total",
			Help:      "Route drafts rejected by validation, by kind.",
		}, []string{"kind"}),
		routes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "routes",
			Help:      "Routes currently held in the tree.",
		}),
	}
	m.registry.MustRegister(
		m.created,
		m.rejected,
		m.routes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RouteCreated records a committed route and the new tree size.
func (m *Metrics) RouteCreated(total int) {
	if m == nil {
		return
	}
	m.created.Inc()
	m.routes.Set(float64(total))
}

// RouteRejected records a validation failure of the given kind.
func (m *Metrics) RouteRejected(kind string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(kind).Inc()
}

// SetRoutes sets the tree size, used after loading from storage.
func (m *Metrics) SetRoutes(total int) {
	if m == nil {
		return
	}
	m.routes.Set(float64(total))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
