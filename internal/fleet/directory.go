package fleet

import (
	"sort"
	"sync"
)

// Directory is the shared store of per-device discovery and health
// state. It is the only component mutated by more than one goroutine:
// the discovery coordinator replaces records in batches, the health
// poller writes per-device observations, and the serving layer reads
// snapshots. All access goes through one mutex; callers never touch the
// backing map directly.
//
// Each write operation is atomic with respect to readers: a snapshot
// never observes a half-applied record batch or a partially written
// health observation. No network I/O ever happens under the lock.
type Directory struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// NewDirectory creates an empty fleet directory.
func NewDirectory() *Directory {
	return &Directory{
		entries: make(map[string]*Entry),
	}
}

// UpsertRecords replaces the discovery record of every device in the
// batch under a single lock acquisition. Existing health observations
// are untouched; new devices start with StatusUnknown. A later record
// for a device_id already in the batch wins.
//
// Devices absent from the batch are never removed: a device that stops
// being discovered keeps its entry and is driven to StatusOffline by
// the health poller failing to reach it.
func (d *Directory) UpsertRecords(batch []DeviceRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, record := range batch {
		if entry, ok := d.entries[record.DeviceID]; ok {
			entry.Record = record
			continue
		}
		d.entries[record.DeviceID] = &Entry{
			Record: record,
			Health: HealthObservation{Status: StatusUnknown},
		}
	}
}

// WriteHealth replaces the health observation for a single device.
// The write is dropped if the device is no longer known (it cannot
// resurrect an entry that was never discovered).
func (d *Directory) WriteHealth(deviceID string, obs HealthObservation) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.entries[deviceID]
	if !ok {
		return
	}
	entry.Health = obs
}

// Snapshot returns a consistent copy of every entry, sorted by
// device_id. Each entry reflects a single completed write; different
// entries may reflect different write times.
func (d *Directory) Snapshot() []Entry {
	d.mu.Lock()
	snapshot := make([]Entry, 0, len(d.entries))
	for _, entry := range d.entries {
		snapshot = append(snapshot, *entry)
	}
	d.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].Record.DeviceID < snapshot[j].Record.DeviceID
	})
	return snapshot
}

// Resolve returns the current discovery record for a device_id.
// Used by the command pass-through to map an id to its base URL.
func (d *Directory) Resolve(deviceID string) (DeviceRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.entries[deviceID]
	if !ok {
		return DeviceRecord{}, false
	}
	return entry.Record, true
}

// Len returns the number of known devices.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
