package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("job not found")
	ErrPoolRunning    = errors.New("worker pool already running")
	ErrPoolNotRunning = errors.New("worker pool not running")
)

// ConfigError means the job configuration is malformed or missing required
// keys. It is raised before any external call is made.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "invalid job config: " + e.Msg
}

func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// ValidationError means an input precondition failed (missing file, empty
// list, bad timestamp range).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ProcessingError means the external media tool ran and reported failure or
// timed out. Stderr carries the tool's diagnostic output verbatim for triage.
type ProcessingError struct {
	Msg      string
	ExitCode int
	Stderr   string
}

func (e *ProcessingError) Error() string {
	if e.Stderr == "" {
		return e.Msg
	}
	return e.Msg + ": " + e.Stderr
}
