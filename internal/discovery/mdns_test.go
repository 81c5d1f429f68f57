package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantOK   bool
		wantID   string
		wantIP   string
		wantPort int
		wantName string
	}{
		{
			name: "full announcement with TXT identity",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "americanPI"},
				HostName:      "americanPI.local.",
				Port:          5000,
				TTL:           120,
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.5")},
				Text: []string{
					"device_id=pi-01",
					"service=EweGo System Health",
					"version=1.0",
					"api=/api/health",
				},
			},
			wantOK:   true,
			wantID:   "pi-01",
			wantIP:   "10.0.0.5",
			wantPort: 5000,
			wantName: "EweGo System Health",
		},
		{
			name: "identity falls back to instance name",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "americanPI"},
				HostName:      "americanPI.local.",
				Port:          5000,
				TTL:           120,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.20")},
				Text:          []string{"version=1.0"},
			},
			wantOK:   true,
			wantID:   "americanPI",
			wantIP:   "192.168.1.20",
			wantPort: 5000,
			wantName: "americanPI",
		},
		{
			name: "port defaults when unset",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "pi-02"},
				TTL:           120,
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.6")},
				Text:          []string{"device_id=pi-02"},
			},
			wantOK:   true,
			wantID:   "pi-02",
			wantIP:   "10.0.0.6",
			wantPort: DefaultPort,
			wantName: "pi-02",
		},
		{
			name: "IPv6 fallback",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "pi-03"},
				Port:          5000,
				TTL:           120,
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
				Text:          []string{"device_id=pi-03"},
			},
			wantOK:   true,
			wantID:   "pi-03",
			wantIP:   "fe80::1",
			wantPort: 5000,
			wantName: "pi-03",
		},
		{
			name: "no identity anywhere",
			entry: &zeroconf.ServiceEntry{
				Port:     5000,
				TTL:      120,
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.7")},
				Text:     []string{"version=1.0"},
			},
			wantOK: false,
		},
		{
			name: "no address on a live announcement",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "pi-04"},
				Port:          5000,
				TTL:           120,
				Text:          []string{"device_id=pi-04"},
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, ok := parseServiceEntry(tt.entry)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if record.DeviceID != tt.wantID {
				t.Errorf("DeviceID = %s, want %s", record.DeviceID, tt.wantID)
			}
			if record.IP != tt.wantIP {
				t.Errorf("IP = %s, want %s", record.IP, tt.wantIP)
			}
			if record.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", record.Port, tt.wantPort)
			}
			if record.DisplayName != tt.wantName {
				t.Errorf("DisplayName = %s, want %s", record.DisplayName, tt.wantName)
			}
		})
	}
}

func TestListener_handleEntry(t *testing.T) {
	listener := NewListener()

	announce := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "pi-01"},
		HostName:      "pi-01.local.",
		Port:          5000,
		TTL:           120,
		AddrIPv4:      []net.IP{net.ParseIP("10.0.0.5")},
		Text:          []string{"device_id=pi-01", "service=EweGo System Health"},
	}
	listener.handleEntry(announce)

	snapshot := listener.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("expected 1 present device, got %d", len(snapshot))
	}
	if snapshot[0].DeviceID != "pi-01" || snapshot[0].IP != "10.0.0.5" {
		t.Errorf("unexpected record: %+v", snapshot[0])
	}

	// Malformed announcement must not disturb the set.
	listener.handleEntry(&zeroconf.ServiceEntry{TTL: 120, Text: []string{"version=1.0"}})
	if len(listener.Snapshot()) != 1 {
		t.Error("malformed announcement changed the present set")
	}

	// Re-announcement at a new address replaces, not duplicates.
	moved := *announce
	moved.AddrIPv4 = []net.IP{net.ParseIP("10.0.0.9")}
	listener.handleEntry(&moved)

	snapshot = listener.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("expected 1 device after re-announcement, got %d", len(snapshot))
	}
	if snapshot[0].IP != "10.0.0.9" {
		t.Errorf("expected updated IP 10.0.0.9, got %s", snapshot[0].IP)
	}

	// Goodbye removes from the present set.
	goodbye := *announce
	goodbye.TTL = 0
	listener.handleEntry(&goodbye)
	if len(listener.Snapshot()) != 0 {
		t.Error("expected goodbye announcement to clear the present set")
	}
}
