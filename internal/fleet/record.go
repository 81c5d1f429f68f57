package fleet

import (
	"fmt"
	"time"

	"github.com/ewego/fleet/internal/urls"
)

// DeviceRecord is the identity and network location of one discovered
// device. Records are replaced wholesale on re-discovery, never merged
// field by field.
type DeviceRecord struct {
	// DeviceID is the stable device identifier (e.g., "americanPI").
	DeviceID string

	// IP is the IPv4 address the device was last seen at.
	IP string

	// Port is the device HTTP port (typically 5000).
	Port int

	// DisplayName is the human-readable device name from the health
	// body or mDNS service property (e.g., "EweGo System Health").
	DisplayName string

	// Hostname is the mDNS hostname, when discovered passively
	// (e.g., "americanPI.local"). Empty for scan-discovered devices.
	Hostname string

	// Metadata contains additional mDNS TXT record data
	// (e.g., "version=1.0", "api=/api/health").
	Metadata map[string]string

	// DiscoveredAt is when this record was produced.
	DiscoveredAt time.Time
}

// String returns a human-readable representation of the record.
func (r DeviceRecord) String() string {
	return fmt.Sprintf("EweGo device %s at %s:%d", r.DeviceID, r.IP, r.Port)
}

// BaseURL returns the HTTP base URL derived from the record's address.
func (r DeviceRecord) BaseURL() string {
	return urls.DeviceBase(r.IP, r.Port)
}

// GetMetadata retrieves a metadata value by key, or returns empty string
// if not present.
func (r DeviceRecord) GetMetadata(key string) string {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata[key]
}

// HealthObservation is the outcome of the most recent poll of one
// device. Observations are replaced wholesale on every poll.
type HealthObservation struct {
	// Status is the classification of the poll outcome.
	Status Status

	// Payload is the decoded health body, or nil when the poll failed.
	// The fleet treats it as opaque telemetry beyond parseability.
	Payload map[string]any

	// ObservedAt is when the poll completed.
	ObservedAt time.Time
}

// Entry pairs a device's discovery record with its latest health
// observation. This is the unit returned by directory snapshots.
type Entry struct {
	Record DeviceRecord
	Health HealthObservation
}
