package authsession

import (
	"context"

	"github.com/dmitrymomot/focusforge/pkg/statemachine"
)

// Events driving the session machine.
const (
	EventNoCredential statemachine.StringEvent = "no_credential"
	EventExpired      statemachine.StringEvent = "expired"
	EventValidated    statemachine.StringEvent = "validated"
	EventRejected     statemachine.StringEvent = "rejected"
	EventUnavailable  statemachine.StringEvent = "unavailable"
	EventUnauthorized statemachine.StringEvent = "unauthorized"
	EventLogin        statemachine.StringEvent = "login"
	EventLogout       statemachine.StringEvent = "logout"
)

var (
	initializing    = statemachine.StringState(KindInitializing.String())
	unauthenticated = statemachine.StringState(KindUnauthenticated.String())
	authenticated   = statemachine.StringState(KindAuthenticated.String())
)

// recovering admits validation outcomes from an unauthenticated session
// only when it was left there by an unreachable server.
func recovering(_ context.Context, from State, _ statemachine.Event, _ State) bool {
	return from.Reason() == ReasonValidationUnavailable
}

// Machine is the session state machine.
type Machine = statemachine.Machine[State]

// NewMachine builds the session transition table, starting in Initializing.
func NewMachine(hooks ...statemachine.Hook[State]) *Machine {
	guard := []statemachine.Guard[State]{recovering}

	opts := []statemachine.Option[State]{
		statemachine.WithTransitions([]statemachine.TransitionDef[State]{
			// Start-up resolution.
			{From: initializing, To: unauthenticated, Event: EventNoCredential},
			{From: initializing, To: unauthenticated, Event: EventExpired},
			{From: initializing, To: authenticated, Event: EventValidated},
			{From: initializing, To: unauthenticated, Event: EventRejected},
			{From: initializing, To: unauthenticated, Event: EventUnavailable},

			// Signed-in session.
			{From: authenticated, To: unauthenticated, Event: EventExpired},
			{From: authenticated, To: unauthenticated, Event: EventUnauthorized},
			{From: authenticated, To: authenticated, Event: EventValidated},
			{From: authenticated, To: unauthenticated, Event: EventRejected},
			{From: authenticated, To: unauthenticated, Event: EventNoCredential},

			// Retrying after the server was unreachable.
			{From: unauthenticated, To: authenticated, Event: EventValidated, Guards: guard},
			{From: unauthenticated, To: unauthenticated, Event: EventRejected, Guards: guard},
			{From: unauthenticated, To: unauthenticated, Event: EventExpired, Guards: guard},
			{From: unauthenticated, To: unauthenticated, Event: EventNoCredential, Guards: guard},
			{From: unauthenticated, To: unauthenticated, Event: EventUnavailable, Guards: guard},

			{From: statemachine.AnyState, To: unauthenticated, Event: EventLogout},
			{From: statemachine.AnyState, To: authenticated, Event: EventLogin},
		}),
	}
	for _, h := range hooks {
		opts = append(opts, statemachine.WithHook(h))
	}

	return statemachine.MustNew(Initializing(), opts...)
}
