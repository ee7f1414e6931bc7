package workflow

// NewSheetMachine returns the expense sheet approval machine positioned at
// the given state. Rejected sheets may be edited and resubmitted.
func NewSheetMachine(current State) *Machine {
	b := NewBuilder(SheetVocabulary)
	b.Configure(StateDraft).
		Permit(TriggerSubmit, StatePending)
	b.Configure(StatePending).
		Permit(TriggerVerify, StateVerified).
		Permit(TriggerReject, StateRejected)
	b.Configure(StateVerified).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)
	b.Configure(StateApproved).
		Permit(TriggerPay, StatePaid).
		Permit(TriggerReject, StateRejected)
	b.Configure(StateRejected).
		Permit(TriggerSubmit, StatePending)
	return b.Build(current)
}

// NewAdvanceMachine returns the advance request machine positioned at the
// given state. Withdrawal is a hard delete handled outside the machine, and
// a direct payment creates the request already in the paid state.
func NewAdvanceMachine(current State) *Machine {
	b := NewBuilder(AdvanceVocabulary)
	b.Configure(StatePending).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)
	b.Configure(StateApproved).
		Permit(TriggerPay, StatePaid).
		Permit(TriggerReject, StateRejected)
	return b.Build(current)
}
