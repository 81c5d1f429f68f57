package server

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ewego/fleet/internal/fleet"
)

func testServer(directory *fleet.Directory) *Server {
	return New(Config{Host: "127.0.0.1", Port: 0}, directory)
}

func decodeDevices(t *testing.T, body io.Reader) devicesResponse {
	t.Helper()

	var payload devicesResponse
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return payload
}

func TestHandleDevices(t *testing.T) {
	dir := fleet.NewDirectory()
	dir.UpsertRecords([]fleet.DeviceRecord{
		{DeviceID: "pi-01", IP: "10.0.0.5", Port: 5000, DisplayName: "EweGo One"},
		{DeviceID: "pi-02", IP: "10.0.0.6", Port: 5000, DisplayName: "EweGo Two"},
	})
	observedAt := time.Now()
	dir.WriteHealth("pi-01", fleet.HealthObservation{
		Status:     fleet.StatusOnline,
		Payload:    map[string]any{"battery": 72.0},
		ObservedAt: observedAt,
	})

	api := httptest.NewServer(testServer(dir).Handler())
	defer api.Close()

	resp, err := http.Get(api.URL + "/api/devices")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	payload := decodeDevices(t, resp.Body)
	if payload.Count != 2 || len(payload.Devices) != 2 {
		t.Fatalf("count = %d, devices = %d, want 2", payload.Count, len(payload.Devices))
	}

	// Snapshot is sorted by device_id.
	online := payload.Devices[0]
	if online.DeviceID != "pi-01" {
		t.Fatalf("first device = %s, want pi-01", online.DeviceID)
	}
	if online.Status != "online" {
		t.Errorf("status = %s, want online", online.Status)
	}
	if online.URL != "http://10.0.0.5:5000" {
		t.Errorf("url = %s", online.URL)
	}
	if online.Health["battery"] != 72.0 {
		t.Errorf("health = %v", online.Health)
	}
	if online.LastSeen != observedAt.Unix() {
		t.Errorf("last_seen = %d, want %d", online.LastSeen, observedAt.Unix())
	}

	// Never-polled device: unknown status, null health, zero last_seen.
	unpolled := payload.Devices[1]
	if unpolled.Status != "unknown" {
		t.Errorf("status = %s, want unknown", unpolled.Status)
	}
	if unpolled.Health != nil {
		t.Errorf("health = %v, want null", unpolled.Health)
	}
	if unpolled.LastSeen != 0 {
		t.Errorf("last_seen = %d, want 0", unpolled.LastSeen)
	}
}

func TestHandleDevices_emptyFleet(t *testing.T) {
	api := httptest.NewServer(testServer(fleet.NewDirectory()).Handler())
	defer api.Close()

	resp, err := http.Get(api.URL + "/api/devices")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload := decodeDevices(t, resp.Body)
	if payload.Count != 0 {
		t.Errorf("count = %d, want 0", payload.Count)
	}
	if payload.Devices == nil {
		t.Error("devices must be an empty list, not null")
	}
}

func TestHandleToggleRecording(t *testing.T) {
	var gotPath string
	device := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		_, _ = w.Write([]byte(`{"recording": true, "message": "Recording started"}`))
	}))
	defer device.Close()

	host, portStr, err := net.SplitHostPort(device.URL[len("http://"):])
	if err != nil {
		t.Fatalf("failed to split device address: %v", err)
	}
	port, _ := strconv.Atoi(portStr)

	dir := fleet.NewDirectory()
	dir.UpsertRecords([]fleet.DeviceRecord{{DeviceID: "pi-01", IP: host, Port: port}})

	api := httptest.NewServer(testServer(dir).Handler())
	defer api.Close()

	resp, err := http.Post(api.URL+"/api/device/pi-01/toggle_recording", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if gotPath != "POST /api/toggle_recording" {
		t.Errorf("device received %q, want POST /api/toggle_recording", gotPath)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"recording": true`) {
		t.Errorf("device response not relayed: %s", body)
	}
}

func TestHandleToggleRecording_failures(t *testing.T) {
	// A device that was discovered but has since gone away.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	goneAddr := listener.Addr().(*net.TCPAddr)
	_ = listener.Close()

	dir := fleet.NewDirectory()
	dir.UpsertRecords([]fleet.DeviceRecord{
		{DeviceID: "gone", IP: "127.0.0.1", Port: goneAddr.Port},
	})

	api := httptest.NewServer(testServer(dir).Handler())
	defer api.Close()

	tests := []struct {
		name       string
		deviceID   string
		wantStatus int
	}{
		{"unknown device", "never-seen", http.StatusNotFound},
		{"unreachable device", "gone", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(api.URL+"/api/device/"+tt.deviceID+"/toggle_recording",
				"application/json", nil)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			var body errorResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode error body: %v", err)
			}
			if body.Error == "" {
				t.Error("expected error message in body")
			}
		})
	}
}

func TestWebSocket_initialSnapshot(t *testing.T) {
	dir := fleet.NewDirectory()
	dir.UpsertRecords([]fleet.DeviceRecord{
		{DeviceID: "pi-01", IP: "10.0.0.5", Port: 5000, DisplayName: "EweGo One"},
	})

	api := httptest.NewServer(testServer(dir).Handler())
	defer api.Close()

	wsURL := "ws" + strings.TrimPrefix(api.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var payload devicesResponse
	if err := json.Unmarshal(message, &payload); err != nil {
		t.Fatalf("push payload is not a snapshot: %v", err)
	}
	if payload.Count != 1 || payload.Devices[0].DeviceID != "pi-01" {
		t.Errorf("unexpected pushed snapshot: %+v", payload)
	}
}
