package statemachine

import (
	"fmt"
)

// Option configures a state machine during construction.
type Option[S State] func(*Machine[S]) error

// TransitionOption configures a single transition with guards and actions.
type TransitionOption[S State] func(*transitionConfig[S])

// TransitionDef defines a transition between states.
type TransitionDef[S State] struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard[S]
	Actions []Action[S]
}

type transitionConfig[S State] struct {
	guards  []Guard[S]
	actions []Action[S]
}

// New creates a new state machine with the given initial state and options.
func New[S State](initialState S, opts ...Option[S]) (*Machine[S], error) {
	if State(initialState) == nil {
		return nil, fmt.Errorf("initial state cannot be nil")
	}

	m := newMachine(initialState)

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// MustNew creates a new state machine with the given initial state and options.
// Panics if any option fails to apply.
func MustNew[S State](initialState S, opts ...Option[S]) *Machine[S] {
	m, err := New(initialState, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return m
}

// WithTransition adds a single transition to the state machine.
func WithTransition[S State](from, to State, event Event, opts ...TransitionOption[S]) Option[S] {
	return func(m *Machine[S]) error {
		cfg := &transitionConfig[S]{}
		for _, opt := range opts {
			opt(cfg)
		}

		return m.AddTransition(from, to, event, cfg.guards, cfg.actions)
	}
}

// WithTransitions adds multiple transitions to the state machine at once.
func WithTransitions[S State](transitions []TransitionDef[S]) Option[S] {
	return func(m *Machine[S]) error {
		for i, t := range transitions {
			if err := m.AddTransition(t.From, t.To, t.Event, t.Guards, t.Actions); err != nil {
				return fmt.Errorf("failed to add transition[%d] %s->%s on %s: %w",
					i, nameOf(t.From), nameOf(t.To), nameOf(t.Event), err)
			}
		}
		return nil
	}
}

// WithHook registers a transition hook.
func WithHook[S State](hook Hook[S]) Option[S] {
	return func(m *Machine[S]) error {
		m.OnTransition(hook)
		return nil
	}
}

// WithGuard adds a single guard to a transition.
func WithGuard[S State](guard Guard[S]) TransitionOption[S] {
	return func(cfg *transitionConfig[S]) {
		if guard != nil {
			cfg.guards = append(cfg.guards, guard)
		}
	}
}

// WithAction adds a single action to a transition.
func WithAction[S State](action Action[S]) TransitionOption[S] {
	return func(cfg *transitionConfig[S]) {
		if action != nil {
			cfg.actions = append(cfg.actions, action)
		}
	}
}

func nameOf(v interface{ Name() string }) string {
	if v == nil {
		return "<nil>"
	}
	return v.Name()
}
