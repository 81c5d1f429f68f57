// Package scan implements the active subnet sweep used to find EweGo
// devices on networks where mDNS is unavailable (WSL, segmented WiFi).
//
// # Scan Process
//
// The scanner expands a CIDR range into host addresses (deriving the
// local /24 from the default route when no range is given) and probes
// the device health port on every host through a bounded worker pool.
// A host counts as a device only when its health body carries identity
// fields (device_id / device_name).
//
// # Resource Bounds
//
// Concurrency is capped by the pool size (default 50) regardless of
// range size, so a full /24 completes in roughly
// (hosts / concurrency) x probe timeout and a larger range degrades
// linearly rather than exhausting sockets.
//
// # Determinism
//
// Results are duplicate-free by device_id. When two addresses claim
// the same identity in one sweep, records are merged in ascending
// address order, so the winner is fixed by addressing rather than by
// which probe happened to return last.
package scan
