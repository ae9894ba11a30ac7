// Package statemachine provides a small, type-safe finite-state machine.
//
// States and events are any types with a Name method. Transitions are
// declared between state names, while the machine stores the full state
// value handed to Fire. This lets a state variant carry data (a user
// profile, a reason) without a transition per payload:
//
//	type Phase struct{ name, reason string }
//	func (p Phase) Name() string { return p.name }
//
//	m := statemachine.MustNew(Phase{name: "idle"},
//	    statemachine.WithTransitions([]statemachine.TransitionDef[Phase]{
//	        {From: statemachine.StringState("idle"), To: statemachine.StringState("done"), Event: statemachine.StringEvent("finish")},
//	    }),
//	)
//	_ = m.Fire(ctx, statemachine.StringEvent("finish"), Phase{name: "done", reason: "ok"})
//
// AnyState as the From of a transition matches every current state.
// Guards may veto a transition, actions run before the state changes and
// hooks observe it afterwards.
//
// # Error Handling
//
//	if statemachine.IsNoTransitionAvailableError(err) { /* ... */ }
//	if statemachine.IsTransitionRejectedError(err)   { /* ... */ }
//
// # Concurrency
//
// Machine guards its state with a RWMutex. Hooks run outside the lock, so
// callers that need hooks to observe transitions in order must serialise
// their Fire calls.
package statemachine
