package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ewego/fleet/internal/fleet"
	"github.com/ewego/fleet/internal/logging"
)

// DefaultDiscoveryInterval is the period between discovery cycles.
const DefaultDiscoveryInterval = 30 * time.Second

// DeviceScanner runs one active sweep of an address range.
type DeviceScanner interface {
	Scan(ctx context.Context, cidr string) ([]fleet.DeviceRecord, error)
}

// Announcer exposes the devices currently present on the passive
// discovery channel.
type Announcer interface {
	Snapshot() []fleet.DeviceRecord
}

// Coordinator runs the discovery loop: on every interval it gathers
// candidates from the active scanner and/or the announcement listener
// and publishes them to the fleet directory in one atomic batch. It
// alternates between an idle state and a scanning state; health fields
// are never touched by this component.
type Coordinator struct {
	// Directory receives the candidate batches.
	Directory *fleet.Directory

	// Scanner performs the active subnet sweep. Nil disables active
	// scanning.
	Scanner DeviceScanner

	// Announcer supplies passively discovered devices. Nil disables
	// passive discovery.
	Announcer Announcer

	// Network is the CIDR range for active scans. Empty derives the
	// local /24 from the default route.
	Network string

	// Interval is the discovery period. Zero falls back to the default.
	Interval time.Duration
}

// Run executes discovery cycles until the context is cancelled. The
// first cycle starts immediately so the dashboard is not empty for a
// full interval after startup.
func (c *Coordinator) Run(ctx context.Context) {
	interval := c.Interval
	if interval == 0 {
		interval = DefaultDiscoveryInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			logging.Info("Discovery coordinator stopped")
			return
		case <-ticker.C:
			c.Cycle(ctx)
		}
	}
}

// Cycle runs one discovery pass. A scan failure degrades to whatever
// the passive channel knows; a cycle that finds nothing at all is a
// valid outcome that leaves existing entries to the health poller.
func (c *Coordinator) Cycle(ctx context.Context) {
	logging.Debug("Discovery state change", zap.String("state", "scanning"))
	defer logging.Debug("Discovery state change", zap.String("state", "idle"))

	var batch []fleet.DeviceRecord

	if c.Scanner != nil {
		records, err := c.Scanner.Scan(ctx, c.Network)
		if err != nil {
			// Fatal to this cycle only; the next interval retries.
			logging.Error("Scan cycle failed",
				zap.String("network", c.Network),
				zap.Error(err),
			)
		} else {
			batch = append(batch, records...)
		}
	}

	// Passive announcements are applied after scan results so an mDNS
	// identity wins when both paths report the same device_id.
	if c.Announcer != nil {
		batch = append(batch, c.Announcer.Snapshot()...)
	}

	if len(batch) == 0 {
		logging.Info("Discovery cycle found no devices",
			zap.Int("known_devices", c.Directory.Len()),
		)
		return
	}

	c.Directory.UpsertRecords(batch)
	logging.Info("Discovery cycle complete",
		zap.Int("candidates", len(batch)),
		zap.Int("known_devices", c.Directory.Len()),
	)
}
