// Package metrics exposes Prometheus metrics for the poll loop and the HTTP API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the application
type Registry struct {
	// Poll Metrics
	PollCyclesTotal     *prometheus.CounterVec
	PollCycleDuration   prometheus.Histogram
	LastSuccessTime     prometheus.Gauge
	ProtocolErrorsTotal *prometheus.CounterVec
	SkippedDevicesTotal prometheus.Counter
	ConnectionState     *prometheus.GaugeVec

	// Topology Metrics
	TopologyNodes       prometheus.Gauge
	TopologyEdges       prometheus.Gauge
	TopologyUnreachable prometheus.Gauge
	TopologyMaxHop      prometheus.Gauge

	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SSEClients           prometheus.Gauge

	registry *prometheus.Registry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
	}

	r.initPollMetrics()
	r.initTopologyMetrics()
	r.initHTTPMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
