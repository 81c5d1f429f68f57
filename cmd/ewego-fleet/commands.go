package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ewego/fleet/internal/config"
	"github.com/ewego/fleet/internal/discovery"
	"github.com/ewego/fleet/internal/fleet"
	"github.com/ewego/fleet/internal/logging"
	"github.com/ewego/fleet/internal/monitor"
	"github.com/ewego/fleet/internal/probe"
	"github.com/ewego/fleet/internal/scan"
	"github.com/ewego/fleet/internal/server"
	"github.com/ewego/fleet/internal/tui"
	"github.com/ewego/fleet/internal/urls"
)

// Serve command and flags
var (
	configPath string
	host       string
	port       int
	network    string
	logLevel   string
	noMDNS     bool
	noScan     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fleet dashboard server",
	Long: `Run the discovery and polling loops and serve the fleet API.

Endpoints:
  GET  /api/devices                            fleet snapshot
  POST /api/device/{id}/toggle_recording       forward toggle to a device
  GET  /ws                                     live snapshot stream`,
	Example: `  # Serve with defaults (mDNS + local /24 sweep, port 5000)
  ewego-fleet serve

  # Explicit scan range, verbose logs
  ewego-fleet serve --network 192.168.4.0/24 --log-level debug

  # mDNS only (no active scanning)
  ewego-fleet serve --no-scan`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServeConfig(cmd)
		if err != nil {
			return err
		}

		if err := logging.Initialize(logLevel); err != nil {
			return err
		}
		defer logging.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		directory := fleet.NewDirectory()
		startEngine(ctx, cfg, directory)

		dashboard := server.New(server.Config{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			PushInterval: cfg.PollInterval(),
		}, directory)
		return dashboard.Start(ctx)
	},
}

// loadServeConfig reads the config file and applies flag overrides.
func loadServeConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	if cmd.Flags().Changed("host") {
		cfg.Server.Host = host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}
	if cmd.Flags().Changed("network") {
		cfg.Discovery.Network = network
	}
	if noMDNS {
		cfg.Discovery.MDNS = false
	}
	if noScan {
		cfg.Discovery.Scan = false
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// startEngine launches the announcement listener, the discovery
// coordinator, and the health poller. They stop when ctx is cancelled,
// finishing their current cycle first. The returned coordinator can
// drive manual rescans.
func startEngine(ctx context.Context, cfg config.Config, directory *fleet.Directory) *monitor.Coordinator {
	coordinator := &monitor.Coordinator{
		Directory: directory,
		Network:   cfg.Discovery.Network,
		Interval:  cfg.DiscoveryInterval(),
	}

	if cfg.Discovery.Scan {
		coordinator.Scanner = scan.NewScanner(
			probe.NewClient(cfg.ScanTimeout()),
			cfg.Discovery.DevicePort,
			cfg.Discovery.Concurrency,
		)
	}
	if cfg.Discovery.MDNS {
		listener := discovery.NewListener()
		coordinator.Announcer = listener
		go func() { _ = listener.Run(ctx) }()
	}

	go coordinator.Run(ctx)

	poller := &monitor.Poller{
		Directory: directory,
		Prober:    probe.NewClient(cfg.PollTimeout()),
		Interval:  cfg.PollInterval(),
	}
	go poller.Run(ctx)

	return coordinator
}

// Scan command and flags
var (
	scanNetwork string
	scanWorkers int
	scanPort    int
	scanTimeout time.Duration
	scanJSON    bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Sweep the network for devices once",
	Long: `Probe every host in a subnet for the EweGo health endpoint and
print what answered. Works where mDNS does not (WSL, segmented WiFi).`,
	Example: `  # Sweep the local /24
  ewego-fleet scan

  # Explicit range with more workers
  ewego-fleet scan --network 192.168.1.0/24 --workers 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.InitializeFromEnv(); err != nil {
			return err
		}
		defer logging.Sync()

		scanner := scan.NewScanner(probe.NewClient(scanTimeout), scanPort, scanWorkers)

		target := scanNetwork
		if target == "" {
			derived, err := scan.LocalNetwork()
			if err != nil {
				return err
			}
			target = derived
		}

		fmt.Printf("Scanning %s for devices on port %d...\n", target, scanner.Port)
		records, err := scanner.Scan(cmd.Context(), target)
		if err != nil {
			return err
		}

		if scanJSON {
			return printRecordsJSON(records)
		}
		printRecords(records)
		return nil
	},
}

// Discover command and flags
var (
	discoverTimeout time.Duration
	discoverJSON    bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Listen for device announcements once",
	Long: `Browse mDNS for EweGo service announcements ("_ewego._tcp") for a
fixed window and print the devices that announced themselves.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.InitializeFromEnv(); err != nil {
			return err
		}
		defer logging.Sync()

		fmt.Printf("Listening for announcements (%s)...\n", discoverTimeout)
		records, err := discovery.Browse(cmd.Context(), discoverTimeout)
		if err != nil {
			return err
		}

		if discoverJSON {
			return printRecordsJSON(records)
		}
		printRecords(records)
		return nil
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run the terminal fleet dashboard",
	Long: `Run the full fleet engine in-process and render it as a live
terminal dashboard instead of serving HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServeConfig(cmd)
		if err != nil {
			return err
		}

		// The alternate screen owns stdout; logs would corrupt it.
		if err := logging.Initialize(""); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		directory := fleet.NewDirectory()
		coordinator := startEngine(ctx, cfg, directory)

		return tui.Run(directory, func() {
			coordinator.Cycle(ctx)
		})
	},
}

// printRecords writes a human-readable device summary, one block per
// device.
func printRecords(records []fleet.DeviceRecord) {
	if len(records) == 0 {
		fmt.Println("\nNo EweGo devices found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  1. Make sure the devices are powered on and on this network")
		fmt.Println("  2. Check the firewall allows the device port and mDNS (UDP 5353)")
		fmt.Println("  3. Try an explicit range: ewego-fleet scan --network <cidr>")
		return
	}

	fmt.Printf("\nFound %d device(s):\n\n", len(records))
	for _, record := range records {
		fmt.Printf("  %s\n", record.DeviceID)
		fmt.Printf("    Name:       %s\n", record.DisplayName)
		fmt.Printf("    Address:    %s:%d\n", record.IP, record.Port)
		if record.Hostname != "" {
			fmt.Printf("    Hostname:   %s\n", record.Hostname)
		}
		fmt.Printf("    Health API: %s\n", urls.Health(record.BaseURL()))
		fmt.Println()
	}
}

// printRecordsJSON writes the records as a JSON array for scripting.
func printRecordsJSON(records []fleet.DeviceRecord) error {
	type deviceOut struct {
		DeviceID   string `json:"device_id"`
		DeviceName string `json:"device_name"`
		IP         string `json:"ip"`
		Port       int    `json:"port"`
		Hostname   string `json:"hostname,omitempty"`
		URL        string `json:"url"`
	}

	out := make([]deviceOut, 0, len(records))
	for _, record := range records {
		out = append(out, deviceOut{
			DeviceID:   record.DeviceID,
			DeviceName: record.DisplayName,
			IP:         record.IP,
			Port:       record.Port,
			Hostname:   record.Hostname,
			URL:        record.BaseURL(),
		})
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	serveCmd.Flags().StringVar(&host, "host", "0.0.0.0", "Dashboard listen address")
	serveCmd.Flags().IntVarP(&port, "port", "p", 5000, "Dashboard listen port")
	serveCmd.Flags().StringVarP(&network, "network", "n", "", "CIDR range to scan (default: local /24)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&noMDNS, "no-mdns", false, "Disable passive mDNS discovery")
	serveCmd.Flags().BoolVar(&noScan, "no-scan", false, "Disable the active subnet sweep")

	scanCmd.Flags().StringVarP(&scanNetwork, "network", "n", "", "CIDR range to scan (default: local /24)")
	scanCmd.Flags().IntVarP(&scanWorkers, "workers", "w", scan.DefaultConcurrency, "Concurrent probe workers")
	scanCmd.Flags().IntVar(&scanPort, "port", scan.DefaultDevicePort, "Device HTTP port")
	scanCmd.Flags().DurationVarP(&scanTimeout, "timeout", "t", probe.ScanTimeout, "Per-probe timeout")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Output as JSON")

	discoverCmd.Flags().DurationVarP(&discoverTimeout, "timeout", "t", discovery.DefaultBrowseTimeout, "Listen window")
	discoverCmd.Flags().BoolVar(&discoverJSON, "json", false, "Output as JSON")

	tuiCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	tuiCmd.Flags().StringVarP(&network, "network", "n", "", "CIDR range to scan (default: local /24)")
	tuiCmd.Flags().BoolVar(&noMDNS, "no-mdns", false, "Disable passive mDNS discovery")
	tuiCmd.Flags().BoolVar(&noScan, "no-scan", false, "Disable the active subnet sweep")
}
