// Package monitor runs the two periodic loops of the fleet engine.
//
// The discovery coordinator (default 30s) gathers candidate devices
// from the active subnet scanner and the mDNS announcement listener and
// replaces their directory records in one atomic batch. The health
// poller (default 2s) snapshots the known devices, probes them all
// concurrently, and writes one atomic observation per device:
//
//	online  - probe returned a parseable health body
//	error   - host answered with a bad status or unparseable body
//	offline - nobody answered within the probe timeout
//
// Both loops communicate only through the fleet directory and shut
// down cooperatively when their context is cancelled, finishing the
// current cycle first. All network I/O happens outside the directory
// lock, so a wall of timing-out probes can never stall the serving
// path's snapshot reads.
package monitor
