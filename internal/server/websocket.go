package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ewego/fleet/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Outbound messages queued per client before the client is
	// considered stuck and dropped
	clientSendBuffer = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The dashboard is an unauthenticated LAN tool; the page may be
	// opened from any host on the segment.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// hub tracks connected dashboard clients and fans snapshot payloads
// out to them.
type hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

func newHub() *hub {
	return &hub{
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

func (h *hub) register(conn *websocket.Conn) chan []byte {
	send := make(chan []byte, clientSendBuffer)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()
	return send
}

func (h *hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if send, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(send)
	}
	h.mu.Unlock()
}

func (h *hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast queues a payload for every client. A client whose queue is
// full skips this snapshot; the next one supersedes it anyway.
func (h *hub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, send := range h.clients {
		select {
		case send <- payload:
		default:
		}
	}
}

// closeAll disconnects every client, used during shutdown.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, send := range h.clients {
		delete(h.clients, conn)
		close(send)
		_ = conn.Close()
	}
}

// handleWebSocket upgrades the connection and streams fleet snapshots
// until the client goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	logging.Info("Dashboard client connected",
		zap.String("remote_addr", r.RemoteAddr),
	)

	send := s.hub.register(conn)

	// Push the current snapshot immediately so a fresh client does not
	// stare at an empty page until the next tick.
	if payload, err := snapshotPayload(s.directory); err == nil {
		select {
		case send <- payload:
		default:
		}
	}

	go s.writePump(conn, send, r.RemoteAddr)
	go s.readPump(conn, r.RemoteAddr)
}

// writePump drains the client's send queue and keeps the connection
// alive with pings.
func (s *Server) writePump(conn *websocket.Conn, send <-chan []byte, remoteAddr string) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.hub.unregister(conn)
		_ = conn.Close()
	}()

	for {
		select {
		case payload, ok := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound messages (the stream is one-way) and
// notices when the client disconnects.
func (s *Server) readPump(conn *websocket.Conn, remoteAddr string) {
	defer func() {
		s.hub.unregister(conn)
		_ = conn.Close()
		logging.Info("Dashboard client disconnected",
			zap.String("remote_addr", remoteAddr),
		)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
