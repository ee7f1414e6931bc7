package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SheetStatus is the lifecycle state of an expense sheet.
type SheetStatus string

const (
	SheetDraft    SheetStatus = "draft"
	SheetPending  SheetStatus = "pending"
	SheetVerified SheetStatus = "verified"
	SheetApproved SheetStatus = "approved"
	SheetPaid     SheetStatus = "paid"
	SheetRejected SheetStatus = "rejected"
)

// ExpenseItem is a single expense line inside a sheet.
type ExpenseItem struct {
	Date        string          `json:"date"`
	ProjectName string          `json:"project_name"`
	BillType    string          `json:"bill_type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Place       string          `json:"place"`
	Mode        string          `json:"mode"`
	ReceiptURL  string          `json:"receipt_url,omitempty"`
}

// PaymentDetails records how a sheet or advance was paid out.
type PaymentDetails struct {
	Mode      string `json:"mode"`
	Reference string `json:"reference"`
	Date      string `json:"date"`
}

// ExpenseSheet is one employee expense claim for a (user, month, year).
// TotalAmount and NetClaimAmount are stored but must always equal the
// recomputation from items and settlement fields.
type ExpenseSheet struct {
	ID          string `json:"id"`
	SheetNo     string `json:"sheet_no"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	EmpID       string `json:"emp_id"`
	Department  string `json:"department"`
	Designation string `json:"designation"`
	Month       int    `json:"month"`
	Year        int    `json:"year"`

	Items []ExpenseItem `json:"items"`

	AdvanceReceived     decimal.Decimal `json:"advance_received"`
	AdvanceReceivedDate string          `json:"advance_received_date,omitempty"`
	PreviousDue         decimal.Decimal `json:"previous_due"`

	TotalAmount    decimal.Decimal `json:"total_amount"`
	NetClaimAmount decimal.Decimal `json:"net_claim_amount"`

	Status SheetStatus `json:"status"`

	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
	VerifiedBy       string     `json:"verified_by,omitempty"`
	VerifiedAt       *time.Time `json:"verified_at,omitempty"`
	ApprovedBy       string     `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	PaidBy           string     `json:"paid_by,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	PaymentMode      string     `json:"payment_mode,omitempty"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	RejectionReason  string     `json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Recompute refreshes the derived totals from items and settlement fields.
// net_claim_amount = total_amount - advance_received + previous_due and may
// be negative when the employee owes the company.
func (s *ExpenseSheet) Recompute() {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.Amount)
	}
	s.TotalAmount = total
	s.NetClaimAmount = total.Sub(s.AdvanceReceived).Add(s.PreviousDue)
}

// Editable reports whether items and settlement fields may be changed.
func (s *ExpenseSheet) Editable() bool {
	return s.Status == SheetDraft || s.Status == SheetRejected
}

// ValidateItems checks the item list for submission requirements.
func ValidateItem(item ExpenseItem) error {
	if item.Amount.IsNegative() {
		return Invalid("item amount must not be negative, got %s", item.Amount)
	}
	if item.Date == "" {
		return Invalid("item date is required")
	}
	return nil
}
