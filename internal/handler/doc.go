// Package handler implements the HTTP API over the published topology.
//
// TopologyHandler serves the node array, the full snapshot, stored snapshot
// history, poller status, snapshot exports and the hub's raw state list.
// POST /api/refresh runs a poll cycle immediately and is rate limited.
//
// Errors are returned as JSON with an {error, details} body. Requests made
// before the first snapshot was published get 503.
//
// Middleware provides panic recovery, CORS, request logging and request
// metrics. The wrappers pass Flush through so /events keeps streaming.
package handler
