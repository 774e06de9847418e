package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPollMetrics() {
	r.PollCyclesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "zwavenet_poll_cycles_total",
			Help: "Total number of poll cycles by result",
		},
		[]string{"result"},
	)

	r.PollCycleDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "zwavenet_poll_cycle_duration_seconds",
			Help:    "Duration of poll cycles in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	r.LastSuccessTime = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "zwavenet_poll_last_success_timestamp_seconds",
			Help: "Unix time of the last published snapshot",
		},
	)

	r.ProtocolErrorsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "zwavenet_protocol_errors_total",
			Help: "Unsuccessful hub responses by category",
		},
		[]string{"category"},
	)

	r.SkippedDevicesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "zwavenet_skipped_devices_total",
			Help: "Registry devices dropped because their identifier could not be parsed",
		},
	)

	r.ConnectionState = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "zwavenet_connection_state",
			Help: "Current hub connection state (1 for the active state)",
		},
		[]string{"state"},
	)
}

func (r *Registry) initTopologyMetrics() {
	r.TopologyNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "zwavenet_topology_nodes",
			Help: "Number of nodes in the published snapshot",
		},
	)

	r.TopologyEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "zwavenet_topology_edges",
			Help: "Number of directed edges in the published snapshot",
		},
	)

	r.TopologyUnreachable = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "zwavenet_topology_unreachable_nodes",
			Help: "Nodes not reachable from the hub",
		},
	)

	r.TopologyMaxHop = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "zwavenet_topology_max_hop",
			Help: "Largest hop distance from the hub",
		},
	)
}
