// Package logging provides structured logging for the EweGo fleet
// dashboard.
//
// This package wraps zap logger with convenience functions for common
// logging patterns used throughout the fleet engine. It provides both
// general logging functions and specialized functions for the
// discovery and polling loops.
//
// # Log Levels
//
//   - Debug: per-probe failures, HTTP request traces
//   - Info: scan cycle summaries, discovery events, status transitions
//   - Warn: duplicate identities, degraded cycles
//   - Error: startup failures, broken scan cycles
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Device status changed",
//	    zap.String("device_id", "pi-01"),
//	    zap.String("from", "online"),
//	    zap.String("to", "offline"),
//	)
//
// # Configuration
//
// Initialize at startup (the serve command does this from its
// --log-level flag); CLI tools that want silent-by-default behavior use
// InitializeFromEnv, which reads EWEGO_LOG_LEVEL:
//
//	if err := logging.Initialize("info"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying
// zap logger handles synchronization automatically.
package logging
