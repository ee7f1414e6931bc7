package finance

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/powerquip/erp-backend/internal/domain/entity"
	"github.com/powerquip/erp-backend/internal/repository"
)

// recentTransactionLimit caps the per-user recent transaction list.
const recentTransactionLimit = 10

// BalanceLedger computes per-user advance positions on demand. It is a
// pure read over the advance and sheet collections; running balances are
// never persisted as ground truth.
type BalanceLedger struct {
	advances *repository.AdvanceRepository
	sheets   *repository.SheetRepository
	logger   *zap.Logger
}

// NewBalanceLedger creates a new ledger.
func NewBalanceLedger(advances *repository.AdvanceRepository, sheets *repository.SheetRepository, logger *zap.Logger) *BalanceLedger {
	return &BalanceLedger{advances: advances, sheets: sheets, logger: logger}
}

// BalanceFor computes the balance state for one user.
func (l *BalanceLedger) BalanceFor(ctx context.Context, userID string) (*entity.BalanceState, error) {
	advances, err := l.advances.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sheets, err := l.sheets.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	state := computeBalance(userID, advances, sheets)
	state.RecentTransactions = recentTransactions(advances, sheets)
	return state, nil
}

// computeBalance folds paid advances and settled sheets into a balance.
// running_balance = total_advances_received - total_advance_used, always.
func computeBalance(userID string, advances []entity.AdvanceRequest, sheets []entity.ExpenseSheet) *entity.BalanceState {
	state := &entity.BalanceState{
		UserID:                userID,
		RunningBalance:        decimal.Zero,
		TotalAdvancesReceived: decimal.Zero,
		TotalAdvanceUsed:      decimal.Zero,
	}

	for _, adv := range advances {
		if state.UserName == "" {
			state.UserName = adv.UserName
		}
		switch adv.Status {
		case entity.AdvancePaid:
			state.TotalAdvancesReceived = state.TotalAdvancesReceived.Add(adv.PaidAmount)
		case entity.AdvancePending, entity.AdvanceApproved:
			state.PendingRequestsCount++
		}
	}
	for _, sheet := range sheets {
		if state.UserName == "" {
			state.UserName = sheet.UserName
		}
		if sheet.Status == entity.SheetPaid {
			state.TotalAdvanceUsed = state.TotalAdvanceUsed.Add(sheet.AdvanceReceived)
		}
	}

	state.RunningBalance = state.TotalAdvancesReceived.Sub(state.TotalAdvanceUsed)
	return state
}

// recentTransactions lists paid advances and settled sheets, newest first,
// ties broken by id.
func recentTransactions(advances []entity.AdvanceRequest, sheets []entity.ExpenseSheet) []entity.LedgerEntry {
	var entries []entity.LedgerEntry
	for _, adv := range advances {
		if adv.Status != entity.AdvancePaid || adv.PaidAt == nil {
			continue
		}
		entries = append(entries, entity.LedgerEntry{
			Kind:      entity.LedgerAdvance,
			RefID:     adv.ID,
			RefNo:     adv.RequestNo,
			Amount:    adv.PaidAmount,
			Date:      *adv.PaidAt,
			Reference: adv.PaymentReference,
		})
	}
	for _, sheet := range sheets {
		if sheet.Status != entity.SheetPaid || sheet.PaidAt == nil {
			continue
		}
		entries = append(entries, entity.LedgerEntry{
			Kind:      entity.LedgerSettlement,
			RefID:     sheet.ID,
			RefNo:     sheet.SheetNo,
			Amount:    sheet.AdvanceReceived,
			Date:      *sheet.PaidAt,
			Reference: sheet.PaymentReference,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.After(entries[j].Date)
		}
		return entries[i].RefID < entries[j].RefID
	})
	if len(entries) > recentTransactionLimit {
		entries = entries[:recentTransactionLimit]
	}
	return entries
}

// Summary computes the balance state for every user with advance activity
// plus the aggregate totals over the same cohort.
func (l *BalanceLedger) Summary(ctx context.Context) (*entity.BalanceSummary, error) {
	advances, err := l.advances.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	paidSheets, err := l.sheets.ListByStatus(ctx, entity.SheetPaid)
	if err != nil {
		return nil, err
	}

	advByUser := map[string][]entity.AdvanceRequest{}
	for _, adv := range advances {
		advByUser[adv.UserID] = append(advByUser[adv.UserID], adv)
	}
	sheetsByUser := map[string][]entity.ExpenseSheet{}
	for _, sheet := range paidSheets {
		sheetsByUser[sheet.UserID] = append(sheetsByUser[sheet.UserID], sheet)
	}

	userIDs := map[string]bool{}
	for id := range advByUser {
		userIDs[id] = true
	}
	for id := range sheetsByUser {
		userIDs[id] = true
	}
	ordered := make([]string, 0, len(userIDs))
	for id := range userIDs {
		ordered = append(ordered, id)
	}
	sort.Strings(ordered)

	summary := &entity.BalanceSummary{
		TotalAdvancesGiven:       decimal.Zero,
		TotalAdvancesRecovered:   decimal.Zero,
		TotalOutstandingAdvances: decimal.Zero,
	}
	for _, id := range ordered {
		state := computeBalance(id, advByUser[id], sheetsByUser[id])
		summary.Users = append(summary.Users, *state)
		summary.TotalAdvancesGiven = summary.TotalAdvancesGiven.Add(state.TotalAdvancesReceived)
		summary.TotalAdvancesRecovered = summary.TotalAdvancesRecovered.Add(state.TotalAdvanceUsed)
		if state.RunningBalance.IsPositive() {
			summary.TotalOutstandingAdvances = summary.TotalOutstandingAdvances.Add(state.RunningBalance)
			summary.EmployeesWithBalance++
		}
	}
	return summary, nil
}
