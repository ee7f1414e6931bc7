package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntryKind distinguishes the two sides of the advance ledger.
type LedgerEntryKind string

const (
	// LedgerAdvance is an advance paid out to the employee.
	LedgerAdvance LedgerEntryKind = "advance"
	// LedgerSettlement is an advance recovered through a paid expense sheet.
	LedgerSettlement LedgerEntryKind = "settlement"
)

// LedgerEntry is one recent transaction in a user's advance ledger.
type LedgerEntry struct {
	Kind      LedgerEntryKind `json:"kind"`
	RefID     string          `json:"ref_id"`
	RefNo     string          `json:"ref_no"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Reference string          `json:"reference,omitempty"`
}

// BalanceState is the derived per-user advance position. It is never
// persisted; it is recomputed from the advance and sheet collections.
type BalanceState struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`

	RunningBalance        decimal.Decimal `json:"running_balance"`
	TotalAdvancesReceived decimal.Decimal `json:"total_advances_received"`
	TotalAdvanceUsed      decimal.Decimal `json:"total_advance_used"`
	PendingRequestsCount  int             `json:"pending_requests_count"`

	RecentTransactions []LedgerEntry `json:"recent_transactions,omitempty"`
}

// BalanceSummary aggregates BalanceState across all users.
type BalanceSummary struct {
	Users []BalanceState `json:"users"`

	TotalAdvancesGiven       decimal.Decimal `json:"total_advances_given"`
	TotalAdvancesRecovered   decimal.Decimal `json:"total_advances_recovered"`
	TotalOutstandingAdvances decimal.Decimal `json:"total_outstanding_advances"`
	EmployeesWithBalance     int             `json:"employees_with_balance"`
}
