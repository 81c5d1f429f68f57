// Package tui renders the fleet as a live terminal dashboard.
//
// The dashboard runs against an in-process fleet directory: the tui
// command starts the discovery and polling loops itself, and the view
// re-reads a directory snapshot every second. Each device shows as a
// list row with a colored status badge, its address, telemetry
// highlights (battery, GPS fix) when present, and the age of the last
// observation.
//
// Key bindings: arrow keys navigate, "r" forces an immediate discovery
// cycle, "q" quits.
package tui
