// Package urls centralizes URL construction for EweGo device endpoints.
//
// Every device exposes the same well-known paths; building them in one
// place keeps the probe client, the command pass-through, and the CLI
// output in agreement about what a device URL looks like.
package urls

import "fmt"

// HealthPath is the device status endpoint polled by the health poller.
const HealthPath = "/api/health"

// ToggleRecordingPath is the device-side recording toggle endpoint.
const ToggleRecordingPath = "/api/toggle_recording"

// DeviceBase returns the HTTP base URL for a device address.
func DeviceBase(ip string, port int) string {
	return fmt.Sprintf("http://%s:%d", ip, port)
}

// Health returns the full health endpoint URL for a device base URL.
func Health(base string) string {
	return base + HealthPath
}

// ToggleRecording returns the full recording-toggle URL for a device base URL.
func ToggleRecording(base string) string {
	return base + ToggleRecordingPath
}
