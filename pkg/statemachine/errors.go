package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid transition: from, to, or event cannot be nil")
	ErrInvalidEvent      = errors.New("invalid event: event cannot be nil")
	ErrInvalidTarget     = errors.New("invalid target: target state cannot be nil")
)

// ErrNoTransitionAvailable indicates no transition exists for the given state, event and target.
type ErrNoTransitionAvailable struct {
	StateName  string
	EventName  string
	TargetName string
}

func (e *ErrNoTransitionAvailable) Error() string {
	return fmt.Sprintf("no transition available from state '%s' to '%s' for event '%s'", e.StateName, e.TargetName, e.EventName)
}

func NewErrNoTransitionAvailable(stateName, eventName, targetName string) *ErrNoTransitionAvailable {
	return &ErrNoTransitionAvailable{
		StateName:  stateName,
		EventName:  eventName,
		TargetName: targetName,
	}
}

// ErrTransitionRejected indicates all possible transitions were blocked by guard functions.
type ErrTransitionRejected struct {
	StateName string
	EventName string
}

func (e *ErrTransitionRejected) Error() string {
	return fmt.Sprintf("transition from state '%s' for event '%s' was rejected by guards", e.StateName, e.EventName)
}

func NewErrTransitionRejected(stateName, eventName string) *ErrTransitionRejected {
	return &ErrTransitionRejected{
		StateName: stateName,
		EventName: eventName,
	}
}

func IsNoTransitionAvailableError(err error) bool {
	var e *ErrNoTransitionAvailable
	return errors.As(err, &e)
}

func IsTransitionRejectedError(err error) bool {
	var e *ErrTransitionRejected
	return errors.As(err, &e)
}
