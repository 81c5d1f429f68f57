package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ewego/fleet/internal/fleet"
	"github.com/ewego/fleet/internal/logging"
	"github.com/ewego/fleet/internal/probe"
)

// DefaultPollInterval is the period between health poll cycles. It is
// deliberately much shorter than the discovery interval: liveness is
// tracked per poll, presence per scan.
const DefaultPollInterval = 2 * time.Second

// Prober issues one bounded-timeout status request to a device address.
type Prober interface {
	Probe(ctx context.Context, ip string, port int) (map[string]any, error)
}

// Poller runs the health loop: each cycle takes one up-front snapshot
// of the known devices, probes them all concurrently, and writes each
// outcome back as an atomic per-device health observation. Fleet sizes
// are small relative to scan ranges, so the fan-out is unbounded; the
// per-probe timeout bounds how long any one device can hold a cycle.
type Poller struct {
	// Directory supplies the device snapshot and receives outcomes.
	Directory *fleet.Directory

	// Prober issues the per-device probes.
	Prober Prober

	// Interval is the poll period. Zero falls back to the default.
	Interval time.Duration
}

// Run executes poll cycles until the context is cancelled. Cycles never
// overlap: a new cycle starts only after every probe of the previous
// one has completed or timed out.
func (p *Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval == 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.Cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			logging.Info("Health poller stopped")
			return
		case <-ticker.C:
			p.Cycle(ctx)
		}
	}
}

// Cycle polls every currently known device once.
func (p *Poller) Cycle(ctx context.Context) {
	snapshot := p.Directory.Snapshot()

	var wg sync.WaitGroup
	for _, entry := range snapshot {
		wg.Add(1)
		go func(entry fleet.Entry) {
			defer wg.Done()
			p.pollDevice(ctx, entry)
		}(entry)
	}
	wg.Wait()
}

// pollDevice probes one device and writes its observation. A failure
// here degrades this device's status and nothing else.
func (p *Poller) pollDevice(ctx context.Context, entry fleet.Entry) {
	record := entry.Record

	payload, err := p.Prober.Probe(ctx, record.IP, record.Port)

	obs := fleet.HealthObservation{ObservedAt: time.Now()}
	if err == nil {
		obs.Status = fleet.StatusOnline
		obs.Payload = payload
	} else {
		obs.Status = Classify(err)
		logging.LogProbeFailure(record.DeviceID, record.BaseURL(), err)
	}

	if obs.Status != entry.Health.Status {
		logging.LogStatusChange(record.DeviceID,
			entry.Health.Status.String(), obs.Status.String())
	}

	p.Directory.WriteHealth(record.DeviceID, obs)
}

// Classify maps a probe failure onto a device status: a host that
// answered badly is in error; a host that never answered is offline.
func Classify(err error) fleet.Status {
	var probeErr *probe.Error
	if errors.As(err, &probeErr) && probeErr.HostReached() {
		return fleet.StatusError
	}
	return fleet.StatusOffline
}
