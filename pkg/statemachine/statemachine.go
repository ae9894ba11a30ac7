package statemachine

import (
	"context"
)

// State represents a state in the state machine.
type State interface {
	Name() string
}

// Event represents an event that can trigger a state transition.
type Event interface {
	Name() string
}

// AnyState matches every source state when used as the From of a transition.
const AnyState = StringState("*")

// Guard evaluates whether a transition should be allowed based on runtime conditions.
type Guard[S State] func(ctx context.Context, from S, event Event, to S) bool

// Action executes side effects during state transitions. Returning an error prevents the transition.
type Action[S State] func(ctx context.Context, from, to S, event Event) error

// Hook observes a completed transition. Hooks run after the new state is visible.
type Hook[S State] func(ctx context.Context, from, to S, event Event)

// Transition defines a state change triggered by an event, with optional guards and actions.
// States are matched by name so that a state variant may carry data.
type Transition[S State] struct {
	From    string
	To      string
	Event   string
	Guards  []Guard[S]  // All must pass for transition to proceed
	Actions []Action[S] // Executed in order before state change
}

// StringState provides a simple string-based state implementation for basic use cases.
type StringState string

func (s StringState) Name() string {
	return string(s)
}

// StringEvent provides a simple string-based event implementation for basic use cases.
type StringEvent string

func (e StringEvent) Name() string {
	return string(e)
}
