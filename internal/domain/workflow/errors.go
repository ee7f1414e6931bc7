package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when the trigger is not permitted
	// in the current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when every guard on a permitted
	// transition refuses it.
	ErrGuardFailed = errors.New("guard condition failed")
)
