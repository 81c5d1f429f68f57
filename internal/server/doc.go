// Package server exposes the fleet directory to operators over HTTP.
//
// # Endpoints
//
//	GET  /api/devices                            current fleet snapshot
//	POST /api/device/{deviceID}/toggle_recording forward toggle to the device
//	GET  /ws                                     live snapshot stream
//
// The snapshot endpoint and the WebSocket push serve the same payload:
// every known device with its identity, derived base URL, current
// status, last health payload, and observation timestamp. The serving
// path only reads directory snapshots under the directory's short-held
// lock; it never performs device I/O, so its latency is independent of
// how many probes are currently timing out.
//
// The toggle endpoint is a thin pass-through: the server resolves
// device_id to the device's current base URL and relays the device's
// response verbatim. Command delivery is best-effort.
//
// The server always has a snapshot to return, possibly empty; no
// discovery or polling failure ever surfaces as an API error.
package server
