// Package fleet holds the shared directory of discovered EweGo devices
// and their latest health observations.
//
// # Data Model
//
// Each known device has exactly one Entry, keyed by its stable
// device_id:
//   - DeviceRecord: identity and network location, written by the
//     discovery coordinator. Re-discovery at a new address replaces the
//     record; it never creates a duplicate entry.
//   - HealthObservation: the outcome of the most recent poll, written
//     by the health poller. Replaced wholesale on every poll.
//
// # Concurrency
//
// The Directory is the single synchronization point between the
// discovery loop, the polling loop, and the serving layer. One mutex
// guards all reads and writes; each of "replace a record batch" and
// "write one health observation" is atomic under it, so readers never
// see torn state. Network calls are always made outside the lock and
// only their results are written under it.
//
// # Lifecycle
//
// Entries are added when a device is first discovered and are never
// evicted. A device that disappears from the network keeps its entry
// with status "offline", which preserves the operator-visible signal
// that a previously known device went dark.
package fleet
