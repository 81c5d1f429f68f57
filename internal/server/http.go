package server

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ewego/fleet/internal/fleet"
	"github.com/ewego/fleet/internal/logging"
	"github.com/ewego/fleet/internal/urls"
)

// deviceResponse is one device in the /api/devices payload. The shape
// is what the dashboard page consumes: identity, derived URL, current
// status, the last health payload (null until the first successful
// poll), and when the observation was made.
type deviceResponse struct {
	DeviceID   string         `json:"device_id"`
	DeviceName string         `json:"device_name"`
	IP         string         `json:"ip"`
	URL        string         `json:"url"`
	Status     string         `json:"status"`
	Health     map[string]any `json:"health"`
	LastSeen   int64          `json:"last_seen"`
}

// devicesResponse is the full /api/devices payload.
type devicesResponse struct {
	Devices []deviceResponse `json:"devices"`
	Count   int              `json:"count"`
}

// errorResponse is the JSON body for API failures.
type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the API routes. Split from Start so tests can serve
// the handler through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/devices", s.handleDevices)
	mux.HandleFunc("POST /api/device/{deviceID}/toggle_recording", s.handleToggleRecording)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// handleDevices returns the current fleet snapshot.
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path)

	payload, err := snapshotPayload(s.directory)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to encode snapshot"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

// handleToggleRecording resolves a device_id to its current base URL
// and forwards the toggle command. The fleet's only responsibility is
// the resolution; the device owns the recording semantics, so its
// response is relayed as-is.
func (s *Server) handleToggleRecording(w http.ResponseWriter, r *http.Request) {
	deviceID := r.PathValue("deviceID")
	logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path)

	record, ok := s.directory.Resolve(deviceID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown device: " + deviceID})
		return
	}

	resp, err := s.forward.Post(urls.ToggleRecording(record.BaseURL()), "application/json", nil)
	if err != nil {
		logging.Warn("Toggle command failed to reach device",
			zap.String("device_id", deviceID),
			zap.String("url", record.BaseURL()),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "device unreachable: " + deviceID})
		return
	}
	defer func() { _ = resp.Body.Close() }()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// snapshotPayload encodes the directory snapshot in the /api/devices
// shape. Shared between the REST handler and the WebSocket push.
func snapshotPayload(directory *fleet.Directory) ([]byte, error) {
	snapshot := directory.Snapshot()

	devices := make([]deviceResponse, 0, len(snapshot))
	for _, entry := range snapshot {
		var lastSeen int64
		if !entry.Health.ObservedAt.IsZero() {
			lastSeen = entry.Health.ObservedAt.Unix()
		}
		devices = append(devices, deviceResponse{
			DeviceID:   entry.Record.DeviceID,
			DeviceName: entry.Record.DisplayName,
			IP:         entry.Record.IP,
			URL:        entry.Record.BaseURL(),
			Status:     entry.Health.Status.String(),
			Health:     entry.Health.Payload,
			LastSeen:   lastSeen,
		})
	}

	return json.Marshal(devicesResponse{Devices: devices, Count: len(devices)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
