package event

// Type identifies the type of workflow event.
type Type string

const (
	TypeSheetCreated     Type = "sheet.created"
	TypeSheetSubmitted   Type = "sheet.submitted"
	TypeSheetVerified    Type = "sheet.verified"
	TypeSheetApproved    Type = "sheet.approved"
	TypeSheetRejected    Type = "sheet.rejected"
	TypeSheetPaid        Type = "sheet.paid"
	TypeAdvanceCreated   Type = "advance.created"
	TypeAdvanceApproved  Type = "advance.approved"
	TypeAdvanceRejected  Type = "advance.rejected"
	TypeAdvancePaid      Type = "advance.paid"
	TypeAdvanceWithdrawn Type = "advance.withdrawn"
)

// String returns the string representation of the event type.
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants.
func (t Type) IsValid() bool {
	switch t {
	case TypeSheetCreated,
		TypeSheetSubmitted,
		TypeSheetVerified,
		TypeSheetApproved,
		TypeSheetRejected,
		TypeSheetPaid,
		TypeAdvanceCreated,
		TypeAdvanceApproved,
		TypeAdvanceRejected,
		TypeAdvancePaid,
		TypeAdvanceWithdrawn:
		return true
	default:
		return false
	}
}
