package translate

import (
	"errors"
	"fmt"
)

// Error kinds. Every failed Submit returns an *Error whose Kind is one of these.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotConfigured   = errors.New("translation service is not configured")
	ErrNetwork         = errors.New("network error")
	ErrDecoding        = errors.New("decoding error")
	ErrInvalidResponse = errors.New("invalid response")
	ErrTimeout         = errors.New("translation timed out")
	ErrCancelled       = errors.New("translation cancelled")
)

// Error codes forwarded to the host UI.
const (
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeNetwork       = "NETWORK_ERROR"
	CodeAPI           = "API_ERROR"
	CodeCancelled     = "CANCELLED"
	CodeUnknown       = "UNKNOWN"
)

// Error is a terminal job failure with attempt and transport context.
type Error struct {
	Kind       error
	Message    string
	StatusCode int
	Attempt    int
	Err        error
}

// Error formats failures for logs and UI.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the error kind so callers can use errors.Is(err, ErrTimeout).
func (e *Error) Is(target error) bool {
	return e != nil && e.Kind == target
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Code maps an engine error to the host-facing error code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return CodeCancelled
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNotConfigured):
		return CodeConfiguration
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrTimeout):
		return CodeNetwork
	case errors.Is(err, ErrDecoding), errors.Is(err, ErrInvalidResponse):
		return CodeAPI
	default:
		return CodeUnknown
	}
}

// Retryable reports whether the UI should offer a retry for err.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrNetwork),
		errors.Is(err, ErrDecoding),
		errors.Is(err, ErrInvalidResponse),
		errors.Is(err, ErrTimeout):
		return true
	default:
		return false
	}
}

func newError(kind error, attempt int, message string, cause error) *Error {
	return &Error{Kind: kind, Attempt: attempt, Message: message, Err: cause}
}
