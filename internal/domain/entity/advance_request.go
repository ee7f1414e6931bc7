package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdvanceStatus is the lifecycle state of an advance request.
type AdvanceStatus string

const (
	AdvancePending  AdvanceStatus = "pending"
	AdvanceApproved AdvanceStatus = "approved"
	AdvanceRejected AdvanceStatus = "rejected"
	AdvancePaid     AdvanceStatus = "paid"
)

// AdvanceRequest is an employee request for an advance payment against
// future expenses. A direct payment skips the approval stage entirely.
type AdvanceRequest struct {
	ID          string `json:"id"`
	RequestNo   string `json:"request_no"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	EmpID       string `json:"emp_id"`
	Department  string `json:"department"`
	ProjectName string `json:"project_name,omitempty"`
	Purpose     string `json:"purpose"`

	Amount decimal.Decimal `json:"amount"`

	Status AdvanceStatus `json:"status"`

	ApprovedBy      string     `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedBy      string     `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`

	PaidBy           string          `json:"paid_by,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	PaymentMode      string          `json:"payment_mode,omitempty"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	PaymentDate      string          `json:"payment_date,omitempty"`

	IsDirectPayment bool `json:"is_direct_payment"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks creation-time constraints.
func (a *AdvanceRequest) Validate() error {
	if !a.Amount.IsPositive() {
		return Invalid("advance amount must be positive, got %s", a.Amount)
	}
	if a.Purpose == "" {
		return Invalid("advance purpose is required")
	}
	return nil
}
