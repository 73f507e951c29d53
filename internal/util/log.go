package util

import (
	"github.com/duyhung112/crypto-insights/internal/common"
	"github.com/rs/zerolog/log"
)

// Logger provides utility functions for consistent logging. Each instance is
// scoped to one component so every event carries its origin.
type Logger struct {
	component string
}

// NewLogger creates a Logger scoped to the given component name.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// Error logs an error with the specified error code, message, and optional fields.
func (l *Logger) Error(err error, errorCode common.ErrorCode, errorMsg common.ErrorMessage, msg string, fields ...interface{}) {
	event := log.Error().
		Err(err).
		Str("component", l.component).
		Str("error_code", errorCode.String()).
		Str("error_message", errorMsg.String())

	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			event = event.Interface(fields[i].(string), fields[i+1])
		}
	}

	event.Msg(msg)
}

// Warn logs a warning with the specified error code, message, and optional fields.
func (l *Logger) Warn(errorCode common.ErrorCode, errorMsg common.ErrorMessage, msg string, fields ...interface{}) {
	event := log.Warn().
		Str("component", l.component).
		Str("error_code", errorCode.String()).
		Str("error_message", errorMsg.String())

	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			event = event.Interface(fields[i].(string), fields[i+1])
		}
	}

	event.Msg(msg)
}

// Info logs an info message with optional fields.
func (l *Logger) Info(msg string, fields ...interface{}) {
	event := log.Info().Str("component", l.component)

	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			event = event.Interface(fields[i].(string), fields[i+1])
		}
	}

	event.Msg(msg)
}

// Debug logs a debug message with optional fields.
func (l *Logger) Debug(msg string, fields ...interface{}) {
	event := log.Debug().Str("component", l.component)

	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			event = event.Interface(fields[i].(string), fields[i+1])
		}
	}

	event.Msg(msg)
}
