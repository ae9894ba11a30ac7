package authsession

import "errors"

var (
	// ErrNotAuthenticated is returned by Refresh when there is no session to refresh
	// or when the server rejected the credential.
	ErrNotAuthenticated = errors.New("authsession.not_authenticated")

	// ErrValidationUnavailable wraps transient failures that left the
	// credential's validity unknown.
	ErrValidationUnavailable = errors.New("authsession.validation_unavailable")

	// ErrSuperseded is returned when a newer login, logout or sign-out
	// happened while the operation was in flight; its result was discarded.
	ErrSuperseded = errors.New("authsession.superseded")

	ErrAlreadyStarted = errors.New("authsession.already_started")
	ErrClosed         = errors.New("authsession.closed")
)
