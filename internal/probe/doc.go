// Package probe issues single bounded-timeout status requests to EweGo
// device addresses.
//
// A probe is one GET to a device's /api/health endpoint. It succeeds
// only when the device answers 200 with a parseable JSON body; every
// other outcome is a typed *Error with one of four kinds:
//
//   - Timeout: the deadline fired before a complete response
//   - Unreachable: transport failure (refused, no route, DNS)
//   - BadStatus: the host answered with a non-200 status
//   - Malformed: a 200 response whose body is not valid JSON
//
// The split matters downstream: BadStatus and Malformed mean the host
// is alive but unhealthy (status "error"), while Timeout and
// Unreachable mean nobody answered (status "offline").
//
// The client performs no retries and holds no shared state; both the
// subnet scanner and the health poller fan out many concurrent probes
// through one client.
package probe
