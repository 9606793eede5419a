package logger

import (
	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across cgen.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Components
	FieldComponent = "component"

	// Generation
	FieldLibrary   = "library"
	FieldFile      = "file"
	FieldClass     = "class"
	FieldAttribute = "attribute"
	FieldFunction  = "function"
	FieldKind      = "kind"

	// Build
	FieldStep    = "step"
	FieldCommand = "command"
	FieldDir     = "dir"
	FieldChanged = "changed"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount = "count"
	FieldSize  = "size"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Library struct {
//	    log *zap.SugaredLogger
//	}
//
//	func New(name string) *Library {
//	    return &Library{log: logger.ComponentLogger("library")}
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
//
//	libLogger := logger.ChildLogger(baseLogger, logger.FieldLibrary, lib.Name())
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
