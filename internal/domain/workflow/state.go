package workflow

// State represents a lifecycle state of a finance document.
type State string

const (
	StateDraft    State = "draft"
	StatePending  State = "pending"
	StateVerified State = "verified"
	StateApproved State = "approved"
	StatePaid     State = "paid"
	StateRejected State = "rejected"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// Vocabulary is the set of states a particular machine accepts.
type Vocabulary map[State]bool

// SheetVocabulary lists the valid expense sheet states.
var SheetVocabulary = Vocabulary{
	StateDraft:    true,
	StatePending:  true,
	StateVerified: true,
	StateApproved: true,
	StatePaid:     true,
	StateRejected: true,
}

// AdvanceVocabulary lists the valid advance request states. Sheets can be
// resubmitted after rejection; for advances rejection is terminal.
var AdvanceVocabulary = Vocabulary{
	StatePending:  true,
	StateApproved: true,
	StateRejected: true,
	StatePaid:     true,
}

// Contains reports whether the vocabulary includes the state.
func (v Vocabulary) Contains(s State) bool {
	return v[s]
}
