// Package log provides the structured logging interface used across scigam.
//
// The Logger interface is slog-compatible so callers can plug in any backend.
// The default provider is backed by zerolog (see provider.go) and is what the
// fitting engine, the penalty-weight selector and the estimator facade use.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("gam.pirls").With(
//	    log.ModelNameKey, "GLMGam",
//	)
//	logger.Debug("P-IRLS iteration",
//	    log.IterationKey, 3,
//	    log.DevianceKey, 12.7,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are passed as alternating key-value pairs. If the first field given
// to Error is an error value it is logged under the "error" key.
type Logger interface {
	// Debug logs detailed diagnostic information, such as per-iteration deviance.
	Debug(msg string, fields ...any)

	// Info logs general operational information.
	Info(msg string, fields ...any)

	// Warn logs conditions that do not stop the computation, such as
	// exhausting maxiter without convergence.
	Warn(msg string, fields ...any)

	// Error logs error conditions.
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	// Use it to skip building expensive fields.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates and configures loggers. It allows tests to swap the
// backend for a capturing implementation.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
