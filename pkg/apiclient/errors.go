package apiclient

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized indicates the server rejected the credential (HTTP 401)
	ErrUnauthorized = errors.New("apiclient: unauthorized")

	// ErrNetwork indicates the request did not produce a response
	ErrNetwork = errors.New("apiclient: network failure")

	// ErrServer indicates a 5xx status or an unreadable response
	ErrServer = errors.New("apiclient: server failure")

	// ErrRequest indicates the server refused the request (4xx other than 401)
	ErrRequest = errors.New("apiclient: request rejected")

	// ErrInvalidInput indicates the request was rejected locally before sending
	ErrInvalidInput = errors.New("apiclient: invalid input")

	// ErrInvalidBaseURL indicates a malformed API base URL
	ErrInvalidBaseURL = errors.New("apiclient: invalid base URL")
)

// APIError carries the status and server message of a failed response.
type APIError struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v: status %d", e.kind, e.StatusCode)
	}
	return fmt.Sprintf("%v: status %d: %s", e.kind, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// LoginError is returned by Login and Register. Message is meant for display.
type LoginError struct {
	Message string
	Err     error
}

func (e *LoginError) Error() string {
	return e.Message
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

// IsLoginError reports whether err is a *LoginError.
func IsLoginError(err error) bool {
	var e *LoginError
	return errors.As(err, &e)
}

// IsTransient reports whether err leaves the credential's validity unknown.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrServer)
}
