package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/ewego/fleet/internal/fleet"
	"github.com/ewego/fleet/internal/logging"
)

const (
	// ServiceType is the mDNS service type EweGo devices advertise under
	ServiceType = "_ewego._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultBrowseTimeout is the default timeout for one-shot discovery
	DefaultBrowseTimeout = 10 * time.Second

	// DefaultPort is the default HTTP port for EweGo devices
	DefaultPort = 5000

	// rebrowseDelay is the pause before restarting a browse whose
	// entry channel closed while the listener should keep running
	rebrowseDelay = 2 * time.Second
)

// Listener subscribes to EweGo service announcements and maintains the
// set of devices currently present on the passive channel.
//
// A "removed" announcement only drops the device from the listener's
// own set; it never evicts the device from the fleet directory. A
// device that goes silent is classified offline by the health poller,
// which keeps announcement churn decoupled from liveness.
type Listener struct {
	mu      sync.Mutex
	present map[string]fleet.DeviceRecord
}

// NewListener creates an announcement listener with an empty device set.
func NewListener() *Listener {
	return &Listener{
		present: make(map[string]fleet.DeviceRecord),
	}
}

// Run browses for EweGo announcements until the context is cancelled.
// The browse is restarted if its entry channel closes early, so a
// transient resolver failure does not silence passive discovery.
func (l *Listener) Run(ctx context.Context) error {
	for {
		if err := l.browseOnce(ctx); err != nil {
			logging.Warn("mDNS browse failed, retrying", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(rebrowseDelay):
		}
	}
}

// browseOnce runs a single long-lived browse, consuming entries until
// the channel closes or the context ends.
func (l *Listener) browseOnce(ctx context.Context) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case entry, ok := <-entries:
			if !ok {
				return nil
			}
			l.handleEntry(entry)
		}
	}
}

// handleEntry applies one announcement to the present set. A decode
// failure skips only that announcement.
func (l *Listener) handleEntry(entry *zeroconf.ServiceEntry) {
	record, ok := parseServiceEntry(entry)
	if !ok {
		logging.Debug("Skipping undecodable mDNS announcement")
		return
	}

	l.mu.Lock()
	if entry.TTL == 0 {
		delete(l.present, record.DeviceID)
	} else {
		l.present[record.DeviceID] = record
	}
	l.mu.Unlock()

	event := "announced"
	if entry.TTL == 0 {
		event = "removed"
	}
	logging.LogDiscoveryEvent(event, record.DeviceID,
		fmt.Sprintf("%s:%d", record.IP, record.Port))
}

// Snapshot returns a copy of the devices currently present on the
// passive channel.
func (l *Listener) Snapshot() []fleet.DeviceRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := make([]fleet.DeviceRecord, 0, len(l.present))
	for _, record := range l.present {
		records = append(records, record)
	}
	return records
}

// Browse performs a one-shot discovery with the given timeout and
// returns the devices seen, duplicate-free by device_id. Used by the
// discover CLI command.
func Browse(ctx context.Context, timeout time.Duration) ([]fleet.DeviceRecord, error) {
	if timeout == 0 {
		timeout = DefaultBrowseTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(map[string]fleet.DeviceRecord)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			if record, ok := parseServiceEntry(entry); ok && entry.TTL > 0 {
				found[record.DeviceID] = record
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-done

	records := make([]fleet.DeviceRecord, 0, len(found))
	for _, record := range found {
		records = append(records, record)
	}
	return records, nil
}

// parseServiceEntry converts a zeroconf service entry to a device
// record. Returns false if the entry lacks an identity or an address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) (fleet.DeviceRecord, bool) {
	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			// Key without value
			metadata[parts[0]] = ""
		}
	}

	deviceID := metadata["device_id"]
	if deviceID == "" {
		// Devices name their service instance after themselves.
		deviceID = entry.Instance
	}
	if deviceID == "" {
		return fleet.DeviceRecord{}, false
	}

	// Get IP address (prefer IPv4)
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" && entry.TTL > 0 {
		return fleet.DeviceRecord{}, false
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	displayName := metadata["service"]
	if displayName == "" {
		displayName = deviceID
	}

	return fleet.DeviceRecord{
		DeviceID:     deviceID,
		IP:           ip,
		Port:         port,
		DisplayName:  displayName,
		Hostname:     strings.TrimSuffix(entry.HostName, "."),
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}, true
}
