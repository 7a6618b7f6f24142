package dialogue

import (
	"errors"
	"fmt"
)

// Custom error types for better error discrimination
var (
	// ErrEmptySessionID is returned when a turn arrives without a session id
	ErrEmptySessionID = errors.New("session id must not be empty")

	// ErrEmptyInput is returned when a turn arrives with no usable text
	ErrEmptyInput = errors.New("input text is empty")

	// ErrInputTooLong is returned when input exceeds the configured cap
	ErrInputTooLong = errors.New("input text exceeds maximum length")

	// ErrSessionNotFound is returned by lookups for unknown or expired sessions
	ErrSessionNotFound = errors.New("session not found")

	// ErrStoreClosed is returned when the session store was shut down
	ErrStoreClosed = errors.New("session store is closed")

	// ErrMonitorRunning is returned when playback monitoring is started twice
	ErrMonitorRunning = errors.New("playback monitor already running")
)

// ValidationError marks a rejected-turn condition at the pipeline boundary.
// These are the only faults surfaced to the caller; everything downstream
// recovers with stage fallbacks instead.
type ValidationError struct {
	Field  string
	Reason error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
