package monitor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/ewego/fleet/internal/fleet"
	"github.com/ewego/fleet/internal/probe"
)

func recordFor(t *testing.T, deviceID, serverURL string) fleet.DeviceRecord {
	t.Helper()

	host, portStr, err := net.SplitHostPort(serverURL[len("http://"):])
	if err != nil {
		t.Fatalf("failed to split server address: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("failed to parse server port: %v", err)
	}
	return fleet.DeviceRecord{DeviceID: deviceID, IP: host, Port: port}
}

func statusOf(t *testing.T, dir *fleet.Directory, deviceID string) fleet.Entry {
	t.Helper()

	for _, entry := range dir.Snapshot() {
		if entry.Record.DeviceID == deviceID {
			return entry
		}
	}
	t.Fatalf("device %s not found in directory", deviceID)
	return fleet.Entry{}
}

func TestPoller_Cycle_classifiesOutcomes(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"device_id": "pi-01", "battery": 72}`)
	}))
	defer healthy.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "sensor failure", http.StatusInternalServerError)
	}))
	defer broken.Close()

	// Reachable host, unparseable body.
	garbled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json at all")
	}))
	defer garbled.Close()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	goneAddr := listener.Addr().(*net.TCPAddr)
	_ = listener.Close()

	dir := fleet.NewDirectory()
	dir.UpsertRecords([]fleet.DeviceRecord{
		recordFor(t, "pi-01", healthy.URL),
		recordFor(t, "pi-02", broken.URL),
		recordFor(t, "pi-03", garbled.URL),
		{DeviceID: "pi-04", IP: "127.0.0.1", Port: goneAddr.Port},
	})

	poller := &Poller{
		Directory: dir,
		Prober:    probe.NewClient(probe.DefaultTimeout),
	}
	poller.Cycle(context.Background())

	tests := []struct {
		deviceID string
		want     fleet.Status
	}{
		{"pi-01", fleet.StatusOnline},
		{"pi-02", fleet.StatusError},
		{"pi-03", fleet.StatusError},
		{"pi-04", fleet.StatusOffline},
	}
	for _, tt := range tests {
		entry := statusOf(t, dir, tt.deviceID)
		if entry.Health.Status != tt.want {
			t.Errorf("%s: status = %s, want %s", tt.deviceID, entry.Health.Status, tt.want)
		}
	}

	online := statusOf(t, dir, "pi-01")
	if online.Health.Payload["battery"] != 72.0 {
		t.Errorf("expected decoded payload, got %v", online.Health.Payload)
	}
	if online.Health.ObservedAt.IsZero() {
		t.Error("expected observation timestamp to be set")
	}

	offline := statusOf(t, dir, "pi-04")
	if offline.Health.Payload != nil {
		t.Errorf("expected nil payload for offline device, got %v", offline.Health.Payload)
	}
}

func TestPoller_Cycle_onlineToOfflineWithoutEviction(t *testing.T) {
	var mu sync.Mutex
	alive := true

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if !alive {
			// Hijack and drop to simulate the host vanishing.
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				_ = conn.Close()
			}
			return
		}
		fmt.Fprint(w, `{"device_id": "pi-01", "battery": 50}`)
	}))
	defer server.Close()

	dir := fleet.NewDirectory()
	dir.UpsertRecords([]fleet.DeviceRecord{recordFor(t, "pi-01", server.URL)})

	poller := &Poller{
		Directory: dir,
		Prober:    probe.NewClient(probe.DefaultTimeout),
	}

	// Several successful cycles.
	for i := 0; i < 3; i++ {
		poller.Cycle(context.Background())
		if got := statusOf(t, dir, "pi-01").Health.Status; got != fleet.StatusOnline {
			t.Fatalf("cycle %d: status = %s, want online", i, got)
		}
	}

	// Device stops answering: one more cycle flips it.
	mu.Lock()
	alive = false
	mu.Unlock()

	poller.Cycle(context.Background())

	entry := statusOf(t, dir, "pi-01")
	if entry.Health.Status == fleet.StatusOnline {
		t.Errorf("expected device to leave online after it stopped answering, got %s",
			entry.Health.Status)
	}
	if dir.Len() != 1 {
		t.Errorf("device must not be deleted when it goes dark, got %d entries", dir.Len())
	}
}

// A device that hangs past its timeout must not delay writes for the
// rest of the fleet beyond the probe deadline.
func TestPoller_Cycle_slowDeviceDoesNotBlockOthers(t *testing.T) {
	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"device_id": "fast"}`)
	}))
	defer fast.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer slow.Close()

	dir := fleet.NewDirectory()
	dir.UpsertRecords([]fleet.DeviceRecord{
		recordFor(t, "fast", fast.URL),
		recordFor(t, "slow", slow.URL),
	})

	poller := &Poller{
		Directory: dir,
		Prober:    probe.NewClient(200 * time.Millisecond),
	}

	start := time.Now()
	poller.Cycle(context.Background())
	elapsed := time.Since(start)

	// The cycle is bounded by the probe timeout, not the slow handler.
	if elapsed > 1500*time.Millisecond {
		t.Errorf("cycle took %v, should be bounded by the probe timeout", elapsed)
	}
	if got := statusOf(t, dir, "fast").Health.Status; got != fleet.StatusOnline {
		t.Errorf("fast device status = %s, want online", got)
	}
	if got := statusOf(t, dir, "slow").Health.Status; got != fleet.StatusOffline {
		t.Errorf("slow device status = %s, want offline", got)
	}
}
