package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned on schema violations, malformed colors,
	// unknown report types, negative amounts and similar caller mistakes.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a referenced sheet, request or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a state machine refuses a transition.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrImmutableSheet is returned on attempts to edit a sheet outside draft/rejected.
	ErrImmutableSheet = errors.New("sheet is not editable in its current state")

	// ErrDuplicateSheet is returned when a (user, month, year) sheet already exists.
	ErrDuplicateSheet = errors.New("expense sheet already exists for this period")

	// ErrRenderFailed is returned when document composition or decoration fails.
	ErrRenderFailed = errors.New("render failed")
)

// TransitionError carries the current and requested state of a refused
// transition so callers can report both. Reason distinguishes a state
// refusal from an insufficient actor role.
type TransitionError struct {
	Entity    string
	Current   string
	Requested string
	Reason    TransitionFailure
}

// TransitionFailure classifies why a transition was refused.
type TransitionFailure string

const (
	// FailureState means the current state does not permit the transition.
	FailureState TransitionFailure = "state"
	// FailureRole means the acting user's role may not perform the transition.
	FailureRole TransitionFailure = "role"
)

func (e *TransitionError) Error() string {
	if e.Reason == FailureRole {
		return fmt.Sprintf("%s: actor not permitted to move %s from %s to %s",
			ErrInvalidTransition, e.Entity, e.Current, e.Requested)
	}
	return fmt.Sprintf("%s: %s cannot move from %s to %s",
		ErrInvalidTransition, e.Entity, e.Current, e.Requested)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// RenderError names the section being composed when rendering failed.
// Stack details stay internal; only the section name is user visible.
type RenderError struct {
	Section string
	Err     error
}

func (e *RenderError) Error() string {
	if e.Section == "" {
		return fmt.Sprintf("%s: %v", ErrRenderFailed, e.Err)
	}
	return fmt.Sprintf("%s: section %q: %v", ErrRenderFailed, e.Section, e.Err)
}

func (e *RenderError) Unwrap() error { return ErrRenderFailed }

// Invalid wraps ErrInvalidInput with a detail message.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
