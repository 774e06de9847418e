// Package service implements the application layer between the HTTP handlers
// and the poll engine.
//
// TopologyService serves the published snapshot, the snapshot history kept
// in the repository, exports through the codecs, the poller status and
// manual refreshes. The REST states proxy is optional and only wired when a
// hub URL is configured.
//
// # Event System
//
// Poll outcomes are published on the EventBus and forwarded to connected
// clients via Server-Sent Events (SSE).
package service
