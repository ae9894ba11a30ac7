package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Machine is a thread-safe in-memory state machine whose transitions are
// keyed by state and event names: [fromState][event][]Transition.
//
// Fire receives the fully built target state, so a transition table can
// describe variants ("authenticated") while the current value carries the
// variant's payload.
type Machine[S State] struct {
	initialState S
	currentState S
	transitions  map[string]map[string][]Transition[S]
	hooks        []Hook[S]
	mu           sync.RWMutex
}

func newMachine[S State](initialState S) *Machine[S] {
	return &Machine[S]{
		initialState: initialState,
		currentState: initialState,
		transitions:  make(map[string]map[string][]Transition[S]),
	}
}

// Current returns a snapshot of the current state.
func (m *Machine[S]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentState
}

// AddTransition registers a transition. Use AnyState as from to match every state.
func (m *Machine[S]) AddTransition(from, to State, event Event, guards []Guard[S], actions []Action[S]) error {
	if from == nil || to == nil || event == nil {
		return ErrInvalidTransition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fromName := from.Name()
	if _, ok := m.transitions[fromName]; !ok {
		m.transitions[fromName] = make(map[string][]Transition[S])
	}

	// Multiple transitions allowed for same from/event to support branching by target
	m.transitions[fromName][event.Name()] = append(m.transitions[fromName][event.Name()], Transition[S]{
		From:    fromName,
		To:      to.Name(),
		Event:   event.Name(),
		Guards:  guards,
		Actions: actions,
	})
	return nil
}

// OnTransition registers a hook called after every successful transition.
func (m *Machine[S]) OnTransition(hook Hook[S]) {
	if hook == nil {
		return
	}
	m.mu.Lock()
	m.hooks = append(m.hooks, hook)
	m.mu.Unlock()
}

// Fire moves the machine to target if a transition from the current state
// to target's variant is defined for event and its guards pass.
func (m *Machine[S]) Fire(ctx context.Context, event Event, target S) error {
	if event == nil {
		return ErrInvalidEvent
	}
	if State(target) == nil {
		return ErrInvalidTarget
	}

	m.mu.Lock()
	from := m.currentState

	candidates := m.lookup(from.Name(), event.Name(), target.Name())
	if len(candidates) == 0 {
		m.mu.Unlock()
		return NewErrNoTransitionAvailable(from.Name(), event.Name(), target.Name())
	}

	// First transition with passing guards wins (enables priority ordering)
	var chosen *Transition[S]
	for i := range candidates {
		if m.guardsPass(ctx, candidates[i], from, event, target) {
			chosen = &candidates[i]
			break
		}
	}
	if chosen == nil {
		m.mu.Unlock()
		return NewErrTransitionRejected(from.Name(), event.Name())
	}

	for _, action := range chosen.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, from, target, event); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("action failed: %w", err)
		}
	}

	m.currentState = target
	hooks := append([]Hook[S](nil), m.hooks...)
	m.mu.Unlock()

	for _, hook := range hooks {
		hook(ctx, from, target, event)
	}
	return nil
}

// CanFire reports whether Fire would succeed for event and target right now.
func (m *Machine[S]) CanFire(ctx context.Context, event Event, target S) bool {
	if event == nil || State(target) == nil {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.lookup(m.currentState.Name(), event.Name(), target.Name()) {
		if m.guardsPass(ctx, t, m.currentState, event, target) {
			return true
		}
	}
	return false
}

// Reset returns the machine to its initial state without running hooks.
func (m *Machine[S]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentState = m.initialState
}

// lookup returns transitions for the exact source state first, then AnyState ones.
func (m *Machine[S]) lookup(from, event, to string) []Transition[S] {
	var out []Transition[S]
	for _, key := range []string{from, AnyState.Name()} {
		for _, t := range m.transitions[key][event] {
			if t.To == to {
				out = append(out, t)
			}
		}
	}
	return out
}

func (m *Machine[S]) guardsPass(ctx context.Context, t Transition[S], from S, event Event, to S) bool {
	for _, guard := range t.Guards {
		if guard != nil && !guard(ctx, from, event, to) {
			return false
		}
	}
	return true
}
