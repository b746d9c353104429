package entities

import (
	"errors"
	"fmt"
)

// NetworkError means no HTTP response was obtained: the backend was
// unreachable, the connection broke, or a transport timeout expired.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError means the backend answered with a non-success status.
type ServerError struct {
	Code   int
	Status string // Reason phrase, e.g. "Internal Server Error"
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.Status)
}

// UnexpectedError covers everything else, including malformed payloads.
type UnexpectedError struct {
	Err error
}

func (e *UnexpectedError) Error() string { return e.Err.Error() }
func (e *UnexpectedError) Unwrap() error { return e.Err }

// NewNetworkError wraps err as a NetworkError.
func NewNetworkError(err error) error {
	return &NetworkError{Err: err}
}

// NewServerError builds a ServerError.
func NewServerError(code int, status string) error {
	return &ServerError{Code: code, Status: status}
}

// NewUnexpectedError wraps err as an UnexpectedError.
func NewUnexpectedError(err error) error {
	return &UnexpectedError{Err: err}
}

// Describe renders the user-visible message for a failed attempt.
// Errors outside the taxonomy are reported as unexpected.
func Describe(err error) string {
	var netErr *NetworkError
	var srvErr *ServerError
	switch {
	case errors.As(err, &srvErr):
		return fmt.Sprintf("Server error: %d %s", srvErr.Code, srvErr.Status)
	case errors.As(err, &netErr):
		return "Network error: " + netErr.Error()
	default:
		return "Unexpected error: " + err.Error()
	}
}
