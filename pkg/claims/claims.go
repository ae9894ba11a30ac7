package claims

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the unverified view of a credential.
type Claims struct {
	ExpiresAt int64  // Unix seconds
	Subject   string // user identifier, empty when the issuer sets none
}

// IsExpired reports whether the credential is expired at now.
// A credential is expired from its expiry second onwards.
func (c Claims) IsExpired(now time.Time) bool {
	return now.Unix() >= c.ExpiresAt
}

// ExpiresIn returns the time left until expiry, never negative.
func (c Claims) ExpiresIn(now time.Time) time.Duration {
	left := time.Unix(c.ExpiresAt, 0).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// tokenClaims mirrors what the FocusForge API puts into its tokens:
// registered claims plus a userId claim on older issuers.
type tokenClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId,omitempty"`
}

var parser = jwt.NewParser(jwt.WithoutClaimsValidation())

// Decode parses the credential's claims without verifying its signature.
func Decode(credential string) (Claims, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Claims{}, ErrEmptyCredential
	}

	var tc tokenClaims
	if _, _, err := parser.ParseUnverified(credential, &tc); err != nil {
		return Claims{}, errors.Join(ErrMalformed, err)
	}

	if tc.ExpiresAt == nil {
		return Claims{}, ErrMissingExpiry
	}

	subject := tc.Subject
	if subject == "" {
		subject = tc.UserID
	}

	return Claims{
		ExpiresAt: tc.ExpiresAt.Unix(),
		Subject:   subject,
	}, nil
}

// Expired is the fail-safe local check: a credential that cannot be
// decoded is reported as expired.
func Expired(credential string, now time.Time) bool {
	c, err := Decode(credential)
	if err != nil {
		return true
	}
	return c.IsExpired(now)
}
