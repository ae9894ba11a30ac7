package credential

import "errors"

var (
	// ErrNotFound indicates no credential is stored
	ErrNotFound = errors.New("credential.not_found")

	// ErrEmptyCredential indicates an attempt to store an empty credential
	ErrEmptyCredential = errors.New("credential.empty")

	// ErrStoreUnavailable wraps backend I/O failures
	ErrStoreUnavailable = errors.New("credential.store_unavailable")

	// ErrUnknownBackend indicates an unsupported store backend name
	ErrUnknownBackend = errors.New("credential.unknown_backend")
)
