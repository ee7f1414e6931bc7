package workflow

import "fmt"

// Builder accumulates a transition table. States are validated against the
// vocabulary as they are configured, so a typo fails fast at wiring time
// instead of silently refusing transitions later.
type Builder struct {
	vocabulary Vocabulary
	table      map[edge][]transition
	configs    map[State]*StateConfig
}

// StateConfig declares the outgoing transitions of one state.
type StateConfig struct {
	builder *Builder
	from    State
}

// NewBuilder creates a builder over the given state vocabulary.
func NewBuilder(vocabulary Vocabulary) *Builder {
	return &Builder{
		vocabulary: vocabulary,
		table:      make(map[edge][]transition),
		configs:    make(map[State]*StateConfig),
	}
}

// Configure returns the configuration for a state, creating it on first
// use. Panics when the state is outside the vocabulary.
func (b *Builder) Configure(state State) *StateConfig {
	if !b.vocabulary.Contains(state) {
		panic(fmt.Sprintf("workflow: state %q is not in the vocabulary", state))
	}
	cfg, ok := b.configs[state]
	if !ok {
		cfg = &StateConfig{builder: b, from: state}
		b.configs[state] = cfg
	}
	return cfg
}

// Build returns a machine positioned at the initial state. The transition
// table is shared by every machine the builder produces.
func (b *Builder) Build(initial State) *Machine {
	if !b.vocabulary.Contains(initial) {
		panic(fmt.Sprintf("workflow: initial state %q is not in the vocabulary", initial))
	}
	return &Machine{current: initial, table: b.table}
}

// Permit allows the trigger to move this state to the target.
func (c *StateConfig) Permit(trigger Trigger, to State) *StateConfig {
	return c.PermitIf(trigger, to, nil)
}

// PermitIf allows the trigger to move this state to the target when the
// guard passes.
func (c *StateConfig) PermitIf(trigger Trigger, to State, guard GuardFunc) *StateConfig {
	if !c.builder.vocabulary.Contains(to) {
		panic(fmt.Sprintf("workflow: target state %q is not in the vocabulary", to))
	}
	key := edge{from: c.from, trigger: trigger}
	c.builder.table[key] = append(c.builder.table[key], transition{to: to, guard: guard})
	return c
}
