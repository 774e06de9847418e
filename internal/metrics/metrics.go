package metrics

import (
	"time"
)

// Poll cycle results
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// connectionStates lists every label value of ConnectionState
var connectionStates = []string{"disconnected", "connected", "authorized"}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordCycle records the outcome of one poll cycle
func (r *Registry) RecordCycle(result string, duration time.Duration) {
	r.PollCyclesTotal.WithLabelValues(result).Inc()
	r.PollCycleDuration.Observe(duration.Seconds())
	if result == ResultSuccess {
		r.LastSuccessTime.Set(float64(time.Now().Unix()))
	}
}

// RecordProtocolError counts an unsuccessful hub response
func (r *Registry) RecordProtocolError(category string) {
	r.ProtocolErrorsTotal.WithLabelValues(category).Inc()
}

// RecordSkippedDevices counts devices dropped during catalog load
func (r *Registry) RecordSkippedDevices(n int) {
	if n > 0 {
		r.SkippedDevicesTotal.Add(float64(n))
	}
}

// UpdateTopology sets the topology gauges from a published snapshot
func (r *Registry) UpdateTopology(nodes, edges, unreachable, maxHop int) {
	r.TopologyNodes.Set(float64(nodes))
	r.TopologyEdges.Set(float64(edges))
	r.TopologyUnreachable.Set(float64(unreachable))
	r.TopologyMaxHop.Set(float64(maxHop))
}

// SetConnectionState marks state as the active connection state
func (r *Registry) SetConnectionState(state string) {
	for _, s := range connectionStates {
		r.ConnectionState.WithLabelValues(s).Set(0)
	}
	r.ConnectionState.WithLabelValues(state).Set(1)
}
