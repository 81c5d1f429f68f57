package scan

import (
	"bytes"
	"context"
	"net"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ewego/fleet/internal/fleet"
	"github.com/ewego/fleet/internal/logging"
	"github.com/ewego/fleet/internal/probe"
)

const (
	// DefaultConcurrency bounds how many probes are in flight at once
	// during a scan, regardless of range size.
	DefaultConcurrency = 50

	// DefaultDevicePort is the HTTP port EweGo devices listen on.
	DefaultDevicePort = 5000
)

// Target is one address to probe during a scan.
type Target struct {
	IP   string
	Port int
}

// Scanner sweeps an address range for EweGo devices by probing the
// health endpoint of every host, bounded by a fixed worker pool. Wall
// clock for a full range is dominated by (range size / concurrency) x
// per-probe timeout, never by range size alone.
type Scanner struct {
	// Client issues the individual probes. Its timeout should be the
	// tight scanning timeout, not the polling one.
	Client *probe.Client

	// Concurrency is the worker pool size.
	Concurrency int

	// Port is the device port probed on every host in the range.
	Port int
}

// NewScanner creates a scanner with the given probe client. A nil
// client gets the default scan-timeout client; zero concurrency and
// port fall back to the defaults.
func NewScanner(client *probe.Client, port, concurrency int) *Scanner {
	if client == nil {
		client = probe.NewClient(probe.ScanTimeout)
	}
	if port == 0 {
		port = DefaultDevicePort
	}
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	return &Scanner{
		Client:      client,
		Concurrency: concurrency,
		Port:        port,
	}
}

// Scan probes every host in the CIDR range and returns the devices that
// answered with a recognizable health body. An empty cidr derives the
// local /24 from the default route. A range parse failure fails the
// whole scan; individual probe failures are the normal case and are
// simply absent from the result.
func (s *Scanner) Scan(ctx context.Context, cidr string) ([]fleet.DeviceRecord, error) {
	if cidr == "" {
		derived, err := LocalNetwork()
		if err != nil {
			return nil, err
		}
		cidr = derived
	}

	hosts, err := Hosts(cidr)
	if err != nil {
		return nil, err
	}

	targets := make([]Target, 0, len(hosts))
	for _, host := range hosts {
		targets = append(targets, Target{IP: host, Port: s.Port})
	}

	start := time.Now()
	records := s.ScanTargets(ctx, targets)
	logging.LogScanCycle(cidr, len(targets), len(records), time.Since(start))

	return records, nil
}

// ScanTargets probes an explicit target list through the bounded worker
// pool and returns the recognized devices, duplicate-free by device_id.
// Among duplicates the record from the highest-sorting address wins;
// the ordering is fixed so the outcome does not depend on probe timing.
func (s *Scanner) ScanTargets(ctx context.Context, targets []Target) []fleet.DeviceRecord {
	if len(targets) == 0 {
		return nil
	}

	workCh := make(chan Target, s.Concurrency)
	resultCh := make(chan fleet.DeviceRecord, len(targets))

	var wg sync.WaitGroup
	for i := 0; i < s.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, workCh, resultCh)
		}()
	}

	go func() {
		defer close(workCh)
		for _, target := range targets {
			select {
			case <-ctx.Done():
				return
			case workCh <- target:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var found []fleet.DeviceRecord
	for record := range resultCh {
		found = append(found, record)
	}

	return dedupe(found)
}

// worker probes targets until the work channel drains.
func (s *Scanner) worker(ctx context.Context, workCh <-chan Target, resultCh chan<- fleet.DeviceRecord) {
	for target := range workCh {
		body, err := s.Client.Probe(ctx, target.IP, target.Port)
		if err != nil {
			continue
		}

		record, ok := recognize(body, target)
		if !ok {
			continue
		}
		resultCh <- record
	}
}

// recognize decides whether a health body belongs to an EweGo device
// and builds its record. A device is recognized by carrying a
// device_id or device_name field.
func recognize(body map[string]any, target Target) (fleet.DeviceRecord, bool) {
	deviceID, hasID := body["device_id"].(string)
	displayName, hasName := body["device_name"].(string)

	if !hasID && !hasName {
		return fleet.DeviceRecord{}, false
	}
	if deviceID == "" {
		deviceID = "unknown"
	}
	if displayName == "" {
		displayName = "Unknown Device"
	}

	return fleet.DeviceRecord{
		DeviceID:     deviceID,
		IP:           target.IP,
		Port:         target.Port,
		DisplayName:  displayName,
		DiscoveredAt: time.Now(),
	}, true
}

// dedupe keeps one record per device_id. Records are applied in
// ascending (IP, port) order so the last writer is always the
// highest-sorting address, independent of worker scheduling.
func dedupe(records []fleet.DeviceRecord) []fleet.DeviceRecord {
	if len(records) == 0 {
		return nil
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := net.ParseIP(records[i].IP).To4(), net.ParseIP(records[j].IP).To4()
		if cmp := bytes.Compare(a, b); cmp != 0 {
			return cmp < 0
		}
		return records[i].Port < records[j].Port
	})

	byID := make(map[string]int, len(records))
	var out []fleet.DeviceRecord
	for _, record := range records {
		if i, seen := byID[record.DeviceID]; seen {
			logging.Warn("Duplicate device_id in scan cycle",
				zap.String("device_id", record.DeviceID),
				zap.String("kept_ip", record.IP),
				zap.String("replaced_ip", out[i].IP),
			)
			out[i] = record
			continue
		}
		byID[record.DeviceID] = len(out)
		out = append(out, record)
	}

	return out
}
