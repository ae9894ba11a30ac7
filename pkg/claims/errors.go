package claims

import "errors"

var (
	ErrEmptyCredential = errors.New("claims: empty credential")
	ErrMalformed       = errors.New("claims: malformed credential")
	ErrMissingExpiry   = errors.New("claims: credential has no expiry")
)
