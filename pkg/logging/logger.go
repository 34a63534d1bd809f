// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// NewRequestLogger creates a component logger tagged with a request ID.
func NewRequestLogger(component, requestID string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Str("request_id", requestID).
		Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Outgoing request URL and query (limit, skip, select, q)
//   - Batch export progress
//
// Info: Normal operation events
//   - Server startup/shutdown
//   - Batch export start/complete
//   - User notifications of severity info
//
// Warn: Warning conditions that don't prevent operation
//   - Rate limit throttling, unreachable Redis (request sent anyway)
//   - Circuit breaker state changes
//   - Individual transport errors at the client level
//   - User notifications of severity destructive
//
// Error: Error conditions requiring attention
//   - Failed catalog requests seen by the store (user was notified)
//   - Critical rate limit blocks
//   - Configuration errors
//
// Context Fields:
//   - component: catalog-client, catalog-store, rate-limiter, catalog-proxy
//   - url / endpoint: catalog endpoint
//   - status: HTTP status code
//   - error_class: client, server, rate_limit, network, decode, circuit_open, canceled
//   - limit, skip: pagination offsets
//   - request_id: proxy request ID
