// Package device provides the Key Light device model and the in-memory
// registry of devices currently reachable on the local network.
//
// This package manages:
//   - The Device model (serial, network address, last-known light state)
//   - Sparse light state with partial-update merging
//   - A concurrency-safe registry mutated only by discovery events
//
// # Architecture
//
// The registry is the single point of coordination between the two
// sources of concurrent activity in the bridge:
//
//	Discovery Listener → Registry ← Command Dispatcher
//
// Discovery owns the device lifecycle (upsert on found, remove on lost);
// the dispatcher only reads devices and writes cached state back after a
// successful apply. Devices are keyed by serial number, the one
// identifier that is stable across address changes and rediscovery.
//
// Nothing in this package persists across restarts. The registry is
// rebuilt from scratch by discovery every time the process starts.
package device
