// Package logging provides structured logging for keylight2mqtt.
//
// This package wraps Go's standard log/slog package so every component
// logs through the same structured, levelled interface.
//
// # Features
//
//   - JSON output for service deployments (machine-parsable)
//   - Text output for running in a terminal (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig section:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Setting the DEBUG environment variable to any non-empty value forces
// the level to debug regardless of this section.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("device registered", "serial", serial)
//	logger.Error("apply failed", "serial", serial, "error", err)
//
// Never log broker credentials; the MQTT password is the only secret
// this process handles.
package logging
