package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the dashboard configuration, loaded from a YAML file and
// overridable by serve-command flags. Durations are spelled as integer
// seconds/milliseconds in the file.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Poll      PollConfig      `yaml:"poll"`
}

// ServerConfig configures the dashboard HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DiscoveryConfig configures both discovery paths.
type DiscoveryConfig struct {
	// IntervalS is the discovery period in seconds.
	IntervalS int `yaml:"interval_s"`

	// Network is the CIDR range for active scans; empty derives the
	// local /24 from the default route.
	Network string `yaml:"network"`

	// Scan enables the active subnet sweep.
	Scan bool `yaml:"scan"`

	// MDNS enables the passive announcement listener.
	MDNS bool `yaml:"mdns"`

	// DevicePort is the HTTP port devices listen on.
	DevicePort int `yaml:"device_port"`

	// Concurrency bounds the scan worker pool.
	Concurrency int `yaml:"concurrency"`

	// ScanTimeoutMs is the per-probe deadline during scans.
	ScanTimeoutMs int `yaml:"scan_timeout_ms"`
}

// PollConfig configures the health poller.
type PollConfig struct {
	// IntervalS is the poll period in seconds.
	IntervalS int `yaml:"interval_s"`

	// TimeoutMs is the per-probe deadline during health polls.
	TimeoutMs int `yaml:"timeout_ms"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5000,
		},
		Discovery: DiscoveryConfig{
			IntervalS:     30,
			Scan:          true,
			MDNS:          true,
			DevicePort:    5000,
			Concurrency:   50,
			ScanTimeoutMs: 1000,
		},
		Poll: PollConfig{
			IntervalS: 2,
			TimeoutMs: 3000,
		},
	}
}

// Load reads a configuration file over the defaults. An empty path or
// a missing file yields the defaults unchanged; a present but invalid
// file is an error (a half-read config is worse than none).
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run
// with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Discovery.DevicePort < 1 || c.Discovery.DevicePort > 65535 {
		return fmt.Errorf("device port %d out of range", c.Discovery.DevicePort)
	}
	if c.Discovery.IntervalS < 1 {
		return fmt.Errorf("discovery interval must be at least 1s, got %ds", c.Discovery.IntervalS)
	}
	if c.Poll.IntervalS < 1 {
		return fmt.Errorf("poll interval must be at least 1s, got %ds", c.Poll.IntervalS)
	}
	if c.Discovery.Concurrency < 1 {
		return fmt.Errorf("scan concurrency must be at least 1, got %d", c.Discovery.Concurrency)
	}
	if c.Poll.TimeoutMs < 1 || c.Discovery.ScanTimeoutMs < 1 {
		return fmt.Errorf("probe timeouts must be positive")
	}
	if !c.Discovery.Scan && !c.Discovery.MDNS {
		return fmt.Errorf("at least one discovery mechanism (scan, mdns) must be enabled")
	}
	return nil
}

// DiscoveryInterval returns the discovery period as a duration.
func (c *Config) DiscoveryInterval() time.Duration {
	return time.Duration(c.Discovery.IntervalS) * time.Second
}

// PollInterval returns the poll period as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalS) * time.Second
}

// PollTimeout returns the health-poll probe deadline.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Poll.TimeoutMs) * time.Millisecond
}

// ScanTimeout returns the scan probe deadline.
func (c *Config) ScanTimeout() time.Duration {
	return time.Duration(c.Discovery.ScanTimeoutMs) * time.Millisecond
}
