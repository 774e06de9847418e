// Package repository defines the storage interfaces of the sync engine.
//
// Two concerns are persisted:
//
//   - Snapshots: every published topology is stored so the last known mesh
//     survives a restart and can be served before the first poll completes.
//     Older snapshots are pruned to a fixed history.
//   - Payloads: the raw device, entity, state and node status collections of
//     the last remote cycle. Local mode replays them instead of contacting
//     the hub.
//
// The sqlite subpackage implements both on a single database file.
package repository
