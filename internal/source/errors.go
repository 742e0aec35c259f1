package source

import (
	"errors"
	"fmt"
)

// TransportError wraps a network-level failure (DNS, timeout, connection
// reset). Transport errors are retryable.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from a platform API. PlatformMessage holds
// the response body as returned by the platform. Only 5xx and 429 responses
// are retryable.
type APIError struct {
	Status          int
	PlatformMessage string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.PlatformMessage)
}

// ValidationError reports malformed caller input, such as a comment position
// missing required fields. Never retryable; surfaced immediately.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation error: " + e.Msg }

// NotFoundError reports a targeted fetch or delete of a missing remote
// object.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAuthError reports whether err is a 401/403 platform rejection.
func IsAuthError(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status == 401 || ae.Status == 403
	}
	return false
}

// IsRetryable reports whether a failed call may be retried: transport
// errors and 5xx/429 API responses. 4xx errors are never retried.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status >= 500 || ae.Status == 429
	}
	return false
}
