package errors

import "errors"

// This package defines the centralized sentinel errors for the client core.
// Services return these instead of transport-specific errors, and the API
// layer maps them to HTTP status codes with `errors.Is()`.

var (
	// ErrNotFound signifies that a requested resource (session, file,
	// MCP record) could not be located.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation signifies that input provided by a caller failed
	// validation before any backend call was made.
	ErrValidation = errors.New("validation failed")

	// ErrNotReady signifies that the aggregate readiness gate is closed:
	// the backend is unavailable, a stream is in flight, a model switch is
	// pending, or settings are still being applied. The operation was
	// dropped, not queued.
	ErrNotReady = errors.New("chat is not ready")

	// ErrConflict signifies that an operation conflicts with the current
	// state of a resource (e.g. removing the last remaining session).
	ErrConflict = errors.New("resource conflict")

	// ErrInternal signifies an unexpected failure. It is a generic error
	// used to avoid leaking implementation details to callers.
	ErrInternal = errors.New("internal error")
)
