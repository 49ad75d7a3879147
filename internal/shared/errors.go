package shared

import (
	"errors"
	"fmt"
	"net/http"
)

// MsgUnauthorized is the caller-facing message for every authentication failure.
const MsgUnauthorized = "Invalid or missing access token"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest        = fmt.Errorf("API request failed")
	ErrMalformedResponse = fmt.Errorf("malformed upstream response")
	ErrPlaylistNotFound  = fmt.Errorf("playlist not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// UnauthorizedError is returned when a bearer credential is missing or malformed, or when the
// upstream API rejects the identity lookup performed with it.
//
// It always maps to [http.StatusUnauthorized].
type UnauthorizedError struct {
	Err error // underlying cause, may be nil
}

// NewUnauthorizedError wraps cause (which may be nil) in an [UnauthorizedError].
func NewUnauthorizedError(cause error) *UnauthorizedError {
	return &UnauthorizedError{Err: cause}
}

func (e *UnauthorizedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", MsgUnauthorized, e.Err)
	}
	return MsgUnauthorized
}

// Message returns the caller-facing message, without the underlying cause.
func (e *UnauthorizedError) Message() string { return MsgUnauthorized }

// StatusCode is always 401.
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }

func (e *UnauthorizedError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, [ErrNotAuthenticated]) hold for every [UnauthorizedError].
func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrNotAuthenticated
}

// UpstreamError is a non-2xx response from the catalog API.
//
// Status and Body are copied from the upstream response so callers can diagnose the failure;
// Message describes the operation that failed.
type UpstreamError struct {
	Status  int
	Body    []byte
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s (upstream status %d)", e.Message, e.Status)
}

// StatusCode returns the upstream status code.
func (e *UpstreamError) StatusCode() int { return e.Status }

// Is makes errors.Is(err, [ErrAPIRequest]) hold for every [UpstreamError].
func (e *UpstreamError) Is(target error) bool {
	return target == ErrAPIRequest
}

// AsUpstreamError reports whether err wraps an [UpstreamError] and returns it.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// AsUnauthorizedError reports whether err wraps an [UnauthorizedError] and returns it.
func AsUnauthorizedError(err error) (*UnauthorizedError, bool) {
	var ue *UnauthorizedError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
