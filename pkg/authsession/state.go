package authsession

import (
	"fmt"

	"github.com/dmitrymomot/focusforge/pkg/apiclient"
)

// Kind is the variant of a session State.
type Kind int

const (
	KindInitializing Kind = iota
	KindUnauthenticated
	KindAuthenticated
)

func (k Kind) String() string {
	switch k {
	case KindInitializing:
		return "initializing"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Reason explains why a session is unauthenticated.
type Reason int

const (
	ReasonNone Reason = iota
	// ReasonNoCredential means nothing is stored.
	ReasonNoCredential
	// ReasonLocallyExpired means the stored credential's expiry has passed
	// or the credential could not be decoded.
	ReasonLocallyExpired
	// ReasonRemotelyRejected means the server answered 401.
	ReasonRemotelyRejected
	// ReasonLoggedOut means the user signed out.
	ReasonLoggedOut
	// ReasonValidationUnavailable means the server could not be asked.
	// The credential is kept so a later Refresh can recover.
	ReasonValidationUnavailable
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNoCredential:
		return "no_credential"
	case ReasonLocallyExpired:
		return "locally_expired"
	case ReasonRemotelyRejected:
		return "remotely_rejected"
	case ReasonLoggedOut:
		return "logged_out"
	case ReasonValidationUnavailable:
		return "validation_unavailable"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// State is an immutable snapshot of the session.
type State struct {
	kind   Kind
	reason Reason
	user   apiclient.User
}

// Initializing is the state before the stored credential has been resolved.
func Initializing() State {
	return State{kind: KindInitializing}
}

func Unauthenticated(reason Reason) State {
	return State{kind: KindUnauthenticated, reason: reason}
}

func Authenticated(user apiclient.User) State {
	return State{kind: KindAuthenticated, user: user}
}

// Name identifies the variant for the transition table.
func (s State) Name() string {
	return s.kind.String()
}

func (s State) Kind() Kind {
	return s.kind
}

// Reason is ReasonNone unless the state is unauthenticated.
func (s State) Reason() Reason {
	return s.reason
}

// User returns the signed-in profile; ok is false unless authenticated.
func (s State) User() (user apiclient.User, ok bool) {
	if s.kind != KindAuthenticated {
		return apiclient.User{}, false
	}
	return s.user, true
}

func (s State) IsAuthenticated() bool {
	return s.kind == KindAuthenticated
}

func (s State) IsInitializing() bool {
	return s.kind == KindInitializing
}

// String renders e.g. "unauthenticated(logged_out)" or "authenticated(ada@example.com)".
func (s State) String() string {
	switch s.kind {
	case KindUnauthenticated:
		return fmt.Sprintf("%s(%s)", s.kind, s.reason)
	case KindAuthenticated:
		return fmt.Sprintf("%s(%s)", s.kind, s.user.Email)
	default:
		return s.kind.String()
	}
}

// sameVariant reports whether moving from s to t would change nothing a
// reader can observe. Authenticated states never compare equal so that a
// fresh profile is always published.
func (s State) sameVariant(t State) bool {
	return s.kind != KindAuthenticated && s.kind == t.kind && s.reason == t.reason
}
