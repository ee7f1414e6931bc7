package workflow

import (
	"context"
	"fmt"
)

// GuardFunc decides whether a permitted transition may fire.
type GuardFunc func(ctx context.Context) bool

// edge identifies a transition source in the flat transition table.
type edge struct {
	from    State
	trigger Trigger
}

// transition is a target state with an optional guard.
type transition struct {
	to    State
	guard GuardFunc
}

// Machine tracks a current state against an immutable transition table.
// Fire mutates the current state; the table itself is shared and never
// written after Build.
type Machine struct {
	current State
	table   map[edge][]transition
}

// State returns the current state.
func (m *Machine) State() State {
	return m.current
}

// CanFire reports whether the trigger is permitted in the current state,
// ignoring guards.
func (m *Machine) CanFire(trigger Trigger) bool {
	return len(m.table[edge{m.current, trigger}]) > 0
}

// Fire executes the trigger, moving to the first target whose guard
// passes. The state is unchanged when the transition is refused.
func (m *Machine) Fire(ctx context.Context, trigger Trigger) error {
	candidates := m.table[edge{m.current, trigger}]
	if len(candidates) == 0 {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.current)
	}
	for _, t := range candidates {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.to
			return nil
		}
	}
	return fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, m.current)
}

// PermittedTriggers returns the triggers that can fire in the current
// state, ignoring guards.
func (m *Machine) PermittedTriggers() []Trigger {
	var triggers []Trigger
	for e := range m.table {
		if e.from == m.current {
			triggers = append(triggers, e.trigger)
		}
	}
	return triggers
}
