package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fleet.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_missingFileYieldsDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.yaml")} {
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q) error: %v", path, err)
		}
		if cfg != Default() {
			t.Errorf("Load(%q) = %+v, want defaults", path, cfg)
		}
	}
}

func TestLoad_overridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
discovery:
  interval_s: 60
  network: 192.168.4.0/24
  mdns: false
  scan: true
  device_port: 5000
  concurrency: 25
  scan_timeout_ms: 500
poll:
  interval_s: 5
  timeout_ms: 2000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d, want 8080", cfg.Server.Port)
	}
	// Unset fields keep their defaults.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server host = %s, want default", cfg.Server.Host)
	}
	if cfg.Discovery.Network != "192.168.4.0/24" {
		t.Errorf("network = %s", cfg.Discovery.Network)
	}
	if cfg.Discovery.MDNS {
		t.Error("mdns should be disabled")
	}
	if got := cfg.DiscoveryInterval(); got != 60*time.Second {
		t.Errorf("discovery interval = %v", got)
	}
	if got := cfg.PollInterval(); got != 5*time.Second {
		t.Errorf("poll interval = %v", got)
	}
	if got := cfg.PollTimeout(); got != 2*time.Second {
		t.Errorf("poll timeout = %v", got)
	}
	if got := cfg.ScanTimeout(); got != 500*time.Millisecond {
		t.Errorf("scan timeout = %v", got)
	}
}

func TestLoad_invalidFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "unparseable yaml",
			content: "server: [not a mapping",
		},
		{
			name: "port out of range",
			content: `
server:
  port: 99999
`,
		},
		{
			name: "all discovery disabled",
			content: `
discovery:
  scan: false
  mdns: false
`,
		},
		{
			name: "zero poll interval",
			content: `
poll:
  interval_s: 0
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}
