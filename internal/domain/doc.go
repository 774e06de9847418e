// Package domain defines the core types of the Z-Wave mesh topology service.
//
// The types fall into two groups: the raw registry records exactly as the
// Home Assistant websocket API returns them, and the derived model built
// from them once per poll cycle.
//
// # Raw Records
//
// RawDevice, RawEntity and State mirror the device registry, the entity
// registry and the state machine. Their key presence varies between
// integrations, so optional values are explicit (pointers, nil slices)
// instead of looked up ad hoc.
//
// # Derived Model
//
// DeviceRecord is the joined view of one physical node for the selected
// integration schema (Domain). Node and Edge form the mesh graph: every
// node carries its hop distance from the hub and its outgoing edges, each
// edge classified as parent, child or sibling.
//
// Snapshot is the immutable result of one successful poll cycle. Once a
// snapshot is published it is shared read-only between the poller, the
// persistence sink and the HTTP layer.
//
// # Design Principles
//
// - Immutable value objects once published
// - No database or transport dependencies
// - Pure domain logic without infrastructure concerns
package domain
