// Package errors provides centralized error definitions and error handling
// utilities for the engine. It defines domain-specific errors, semantic
// error types, constructors with context wrapping, and classification
// helpers.
//
// # Error Types
//
// Domain-specific errors:
//   - SessionError: errors related to session lifecycle and lookup
//
// Semantic errors:
//   - ValidationError: invalid input (non-numeric signal values)
//   - TransientError: downstream failures that may succeed on retry
//   - TimeoutError: an operation exceeded its bounded deadline
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewSessionError("signal update rejected", errors.ErrSessionEnded).WithSessionID(id)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrSessionNotFound) { ... }
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Session-related sentinel errors
var (
	// ErrSessionNotFound indicates that a session id references no known session.
	ErrSessionNotFound = New("session not found")
	// ErrSessionEnded indicates that a session has reached its terminal state.
	ErrSessionEnded = New("session has ended")
	// ErrEngineClosed indicates that the engine is shut down and accepts no work.
	ErrEngineClosed = New("engine is closed")
)

// Signal-related sentinel errors
var (
	// ErrInvalidSignal indicates a signal value that is not a usable number
	// (NaN or infinite). Finite out-of-range values are clamped, not rejected.
	ErrInvalidSignal = New("invalid signal value")
	// ErrStaleSignal indicates a signal older than the session's latest sample.
	ErrStaleSignal = New("stale signal update")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
)

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// SessionError represents errors related to session lifecycle and lookup.
//
// Example:
//
//	err := errors.NewSessionError("cannot end session", errors.ErrSessionNotFound)
//	err = err.WithSessionID("abc123")
type SessionError struct {
	message   string
	cause     error
	SessionID string
}

// NewSessionError creates a new SessionError.
func NewSessionError(message string, cause error) *SessionError {
	return &SessionError{
		message: message,
		cause:   cause,
	}
}

// WithSessionID adds a session ID to the error context.
func (e *SessionError) WithSessionID(id string) *SessionError {
	e.SessionID = id
	return e
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	prefix := "session error"
	if e.SessionID != "" {
		prefix = fmt.Sprintf("session error [session=%s]", e.SessionID)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying error.
func (e *SessionError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *SessionError) Is(target error) bool {
	if _, ok := target.(*SessionError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input.
//
// Example:
//
//	err := errors.NewValidationError("signal level is not a number").
//	    WithField("level").WithValue(math.NaN())
type ValidationError struct {
	message string
	cause   error
	Field   string
	Value   any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{message: message}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidSignal) {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// TransientError represents a downstream failure that may succeed on retry.
// The engine uses it for adaptation or metrics steps that fail inside a
// periodic tick; such failures back off and retry on the next interval.
//
// Example:
//
//	err := errors.NewTransientError("effectiveness review failed", cause).
//	    WithOperation("periodic_tick")
type TransientError struct {
	message   string
	cause     error
	Operation string
}

// NewTransientError creates a new TransientError.
func NewTransientError(message string, cause error) *TransientError {
	return &TransientError{
		message: message,
		cause:   cause,
	}
}

// WithOperation adds the failing operation to the error context.
func (e *TransientError) WithOperation(op string) *TransientError {
	e.Operation = op
	return e
}

// Error returns the formatted error message.
func (e *TransientError) Error() string {
	prefix := "transient error"
	if e.Operation != "" {
		prefix = fmt.Sprintf("transient error [op=%s]", e.Operation)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying error.
func (e *TransientError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *TransientError) Is(target error) bool {
	if _, ok := target.(*TransientError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// TimeoutError represents an operation that exceeded its bounded deadline.
//
// Example:
//
//	err := errors.NewTimeoutError("periodic tick", 5*time.Second)
type TimeoutError struct {
	cause     error
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Unwrap returns the underlying error.
func (e *TimeoutError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry: TransientError and TimeoutError instances, and
// anything wrapping ErrTimeout.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var transient *TransientError
	var timeout *TimeoutError
	if As(err, &transient) || As(err, &timeout) {
		return true
	}

	return Is(err, ErrTimeout)
}

// GetSeverity returns the severity level of the error. Lookup misses and
// validation problems are warnings; transient and timeout failures are
// retryable warnings; everything else defaults to SeverityError.
func GetSeverity(err error) Severity {
	switch {
	case err == nil:
		return SeverityDebug
	case Is(err, ErrSessionNotFound), Is(err, ErrSessionEnded), Is(err, ErrStaleSignal):
		return SeverityWarning
	case Is(err, ErrInvalidSignal):
		return SeverityWarning
	case IsRetryable(err):
		return SeverityWarning
	default:
		return SeverityError
	}
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to process signal update")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to end session %s", sessionID)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
