package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ewego/fleet/internal/fleet"
	"github.com/ewego/fleet/internal/logging"
)

const (
	// shutdownGrace is how long in-flight requests get to finish
	// after the serve context is cancelled.
	shutdownGrace = 10 * time.Second

	// forwardTimeout bounds the device-side call behind the
	// toggle-recording pass-through.
	forwardTimeout = 5 * time.Second

	// DefaultPushInterval is how often snapshots are pushed to
	// connected WebSocket clients. Matches the health poll cadence so
	// a push never shows staler data than the REST endpoint.
	DefaultPushInterval = 2 * time.Second
)

// Config holds the dashboard server configuration
type Config struct {
	Host         string
	Port         int
	PushInterval time.Duration
}

// Server is the operator-facing HTTP API over the fleet directory. It
// only ever reads directory snapshots; all mutation happens in the
// discovery and polling loops.
type Server struct {
	config     Config
	directory  *fleet.Directory
	forward    *http.Client
	hub        *hub
	httpServer *http.Server
}

// New creates a dashboard server over the given directory.
func New(config Config, directory *fleet.Directory) *Server {
	if config.PushInterval == 0 {
		config.PushInterval = DefaultPushInterval
	}
	return &Server{
		config:    config,
		directory: directory,
		forward:   &http.Client{Timeout: forwardTimeout},
		hub:       newHub(),
	}
}

// Start serves the API until the context is cancelled, then shuts down
// gracefully. The serving path never blocks on device I/O: every
// request is answered from the latest directory snapshot.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	logging.Info("Starting EweGo fleet dashboard",
		zap.String("addr", addr),
		zap.Duration("push_interval", s.config.PushInterval),
	)

	go s.pushLoop(ctx)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping server...")
		return s.shutdown()
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// shutdown stops accepting requests, disconnects WebSocket clients,
// and waits briefly for in-flight requests.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	s.hub.closeAll()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logging.Warn("Shutdown grace period elapsed, forcing close", zap.Error(err))
		return s.httpServer.Close()
	}

	logging.Info("Server stopped gracefully")
	return nil
}

// pushLoop broadcasts the fleet snapshot to WebSocket clients on the
// push cadence.
func (s *Server) pushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.PushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.hub.clientCount() == 0 {
				continue
			}
			payload, err := snapshotPayload(s.directory)
			if err != nil {
				logging.Error("Failed to encode fleet snapshot", zap.Error(err))
				continue
			}
			s.hub.broadcast(payload)
		}
	}
}
