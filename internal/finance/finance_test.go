package finance

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/powerquip/erp-backend/internal/auth"
	"github.com/powerquip/erp-backend/internal/domain/entity"
	"github.com/powerquip/erp-backend/internal/repository"
	"github.com/powerquip/erp-backend/internal/store"
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func (c *fixedClock) tick() { c.t = c.t.Add(time.Minute) }

type seqIDGen struct{ n int }

func (g *seqIDGen) NewID() string {
	g.n++
	return fmt.Sprintf("doc-%04d", g.n)
}

type testEnv struct {
	clock    *fixedClock
	sheets   *SheetService
	advances *AdvanceService
	ledger   *BalanceLedger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := store.NewMemoryStore()
	logger := zap.NewNop()
	clock := &fixedClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	ids := &seqIDGen{}
	seq := repository.NewSequenceAllocator(st, logger)
	sheetRepo := repository.NewSheetRepository(st, seq, logger)
	advanceRepo := repository.NewAdvanceRepository(st, seq, logger)
	return &testEnv{
		clock:    clock,
		sheets:   NewSheetService(sheetRepo, clock, ids, logger),
		advances: NewAdvanceService(advanceRepo, clock, ids, logger),
		ledger:   NewBalanceLedger(advanceRepo, sheetRepo, logger),
	}
}

func ownerCtx(userID string) context.Context {
	return auth.WithActor(context.Background(), auth.Actor{UserID: userID, Role: auth.RoleEmployee})
}

func financeCtx() context.Context {
	return auth.WithActor(context.Background(), auth.Actor{UserID: "fin-1", Role: auth.RoleFinance})
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func items(amounts ...string) []entity.ExpenseItem {
	out := make([]entity.ExpenseItem, 0, len(amounts))
	for i, a := range amounts {
		out = append(out, entity.ExpenseItem{
			Date:        "05/03/2026",
			ProjectName: "Substation upgrade",
			BillType:    "Travel",
			Description: fmt.Sprintf("line %d", i+1),
			Amount:      dec(a),
			Place:       "Chennai",
			Mode:        "Cash",
		})
	}
	return out
}

func TestSheet_DerivedFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := ownerCtx("u1")

	sheet, err := env.sheets.CreateSheet(ctx, CreateSheetInput{
		UserID:          "u1",
		UserName:        "Arun",
		Month:           3,
		Year:            2026,
		Items:           items("1200.50", "799.50", "500.00"),
		AdvanceReceived: dec("3000"),
		PreviousDue:     dec("150"),
	})
	require.NoError(t, err)

	assert.Equal(t, "ES/2026/0001", sheet.SheetNo)
	assert.Equal(t, entity.SheetDraft, sheet.Status)
	assert.True(t, sheet.TotalAmount.Equal(dec("2500.00")), "total = %s", sheet.TotalAmount)
	// net = 2500 - 3000 + 150
	assert.True(t, sheet.NetClaimAmount.Equal(dec("-350.00")), "net = %s", sheet.NetClaimAmount)
}

func TestSheet_FullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	owner := ownerCtx("u1")
	fin := financeCtx()

	sheet, err := env.sheets.CreateSheet(owner, CreateSheetInput{
		UserID: "u1", Month: 3, Year: 2026, Items: items("100"),
	})
	require.NoError(t, err)

	sheet, err = env.sheets.Submit(owner, sheet.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SheetPending, sheet.Status)
	assert.NotNil(t, sheet.SubmittedAt)

	sheet, err = env.sheets.Verify(fin, sheet.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SheetVerified, sheet.Status)
	assert.Equal(t, "fin-1", sheet.VerifiedBy)

	sheet, err = env.sheets.Approve(fin, sheet.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SheetApproved, sheet.Status)

	sheet, err = env.sheets.Pay(fin, sheet.ID, SheetPayment{Mode: "Bank Transfer", Reference: "TXN-9"})
	require.NoError(t, err)
	assert.Equal(t, entity.SheetPaid, sheet.Status)
	assert.Equal(t, "Bank Transfer", sheet.PaymentMode)
	assert.NotNil(t, sheet.PaidAt)
}

func TestSheet_SubmitRequiresItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := ownerCtx("u1")

	sheet, err := env.sheets.CreateSheet(ctx, CreateSheetInput{UserID: "u1", Month: 3, Year: 2026})
	require.NoError(t, err)

	_, err = env.sheets.Submit(ctx, sheet.ID)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestSheet_RoleGuards(t *testing.T) {
	env := newTestEnv(t)
	owner := ownerCtx("u1")
	stranger := ownerCtx("u2")

	sheet, err := env.sheets.CreateSheet(owner, CreateSheetInput{UserID: "u1", Month: 3, Year: 2026, Items: items("10")})
	require.NoError(t, err)

	// Another employee cannot submit someone else's sheet.
	_, err = env.sheets.Submit(stranger, sheet.ID)
	require.ErrorIs(t, err, entity.ErrInvalidTransition)
	var terr *entity.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, entity.FailureRole, terr.Reason)

	sheet, err = env.sheets.Submit(owner, sheet.ID)
	require.NoError(t, err)

	// The owner cannot verify their own sheet.
	_, err = env.sheets.Verify(owner, sheet.ID)
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, entity.FailureRole, terr.Reason)
}

func TestSheet_InvalidTransitionReportsStates(t *testing.T) {
	env := newTestEnv(t)
	owner := ownerCtx("u1")
	fin := financeCtx()

	sheet, err := env.sheets.CreateSheet(owner, CreateSheetInput{UserID: "u1", Month: 3, Year: 2026, Items: items("10")})
	require.NoError(t, err)

	// draft cannot be paid directly
	_, err = env.sheets.Pay(fin, sheet.ID, SheetPayment{Mode: "Cash"})
	var terr *entity.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "draft", terr.Current)
	assert.Equal(t, "paid", terr.Requested)
	assert.Equal(t, entity.FailureState, terr.Reason)
}

func TestSheet_RejectionReentry(t *testing.T) {
	env := newTestEnv(t)
	owner := ownerCtx("u1")
	fin := financeCtx()

	sheet, err := env.sheets.CreateSheet(owner, CreateSheetInput{UserID: "u1", Month: 3, Year: 2026, Items: items("100")})
	require.NoError(t, err)
	sheet, err = env.sheets.Submit(owner, sheet.ID)
	require.NoError(t, err)

	sheet, err = env.sheets.Reject(fin, sheet.ID, "missing receipts")
	require.NoError(t, err)
	assert.Equal(t, entity.SheetRejected, sheet.Status)
	assert.Equal(t, "missing receipts", sheet.RejectionReason)

	// Items can be edited while rejected.
	sheet, err = env.sheets.AddItem(owner, sheet.ID, items("55")[0])
	require.NoError(t, err)
	assert.Len(t, sheet.Items, 2)
	assert.True(t, sheet.TotalAmount.Equal(dec("155")))

	sheet, err = env.sheets.Submit(owner, sheet.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SheetPending, sheet.Status)
	assert.Empty(t, sheet.RejectionReason)
}

func TestSheet_ImmutableAfterSubmit(t *testing.T) {
	env := newTestEnv(t)
	owner := ownerCtx("u1")
	fin := financeCtx()

	sheet, err := env.sheets.CreateSheet(owner, CreateSheetInput{UserID: "u1", Month: 3, Year: 2026, Items: items("100")})
	require.NoError(t, err)
	sheet, err = env.sheets.Submit(owner, sheet.ID)
	require.NoError(t, err)

	_, err = env.sheets.AddItem(owner, sheet.ID, items("5")[0])
	assert.ErrorIs(t, err, entity.ErrImmutableSheet)

	_, err = env.sheets.DeleteItem(owner, sheet.ID, 0)
	assert.ErrorIs(t, err, entity.ErrImmutableSheet)

	adv := dec("10")
	_, err = env.sheets.UpdateSheet(owner, sheet.ID, UpdateSheetInput{AdvanceReceived: &adv})
	assert.ErrorIs(t, err, entity.ErrImmutableSheet)

	// Paid sheets refuse every further transition.
	sheet, err = env.sheets.Verify(fin, sheet.ID)
	require.NoError(t, err)
	sheet, err = env.sheets.Approve(fin, sheet.ID)
	require.NoError(t, err)
	sheet, err = env.sheets.Pay(fin, sheet.ID, SheetPayment{Mode: "Cash"})
	require.NoError(t, err)

	_, err = env.sheets.Reject(fin, sheet.ID, "too late")
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
	_, err = env.sheets.Submit(owner, sheet.ID)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
	_, err = env.sheets.AddItem(owner, sheet.ID, items("5")[0])
	assert.ErrorIs(t, err, entity.ErrImmutableSheet)
}

func TestSheet_DuplicatePeriodGuard(t *testing.T) {
	env := newTestEnv(t)
	ctx := ownerCtx("u1")

	_, err := env.sheets.CreateSheet(ctx, CreateSheetInput{UserID: "u1", Month: 3, Year: 2026, Items: items("10")})
	require.NoError(t, err)

	_, err = env.sheets.CreateSheet(ctx, CreateSheetInput{UserID: "u1", Month: 3, Year: 2026, Items: items("20")})
	assert.ErrorIs(t, err, entity.ErrDuplicateSheet)

	// The failed create wasted no sheet number.
	next, err := env.sheets.CreateSheet(ctx, CreateSheetInput{UserID: "u1", Month: 4, Year: 2026, Items: items("20")})
	require.NoError(t, err)
	assert.Equal(t, "ES/2026/0002", next.SheetNo)
}

func TestAdvance_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	owner := ownerCtx("u1")
	fin := financeCtx()

	req, err := env.advances.CreateRequest(owner, CreateAdvanceInput{
		UserID: "u1", UserName: "Arun", Amount: dec("3000"), Purpose: "Site visit",
	})
	require.NoError(t, err)
	assert.Equal(t, "ARN/2026/0001", req.RequestNo)
	assert.Equal(t, entity.AdvancePending, req.Status)

	// S1: pending request shows up in the balance.
	balance, err := env.ledger.BalanceFor(context.Background(), "u1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, balance.PendingRequestsCount, 1)

	req, err = env.advances.Approve(fin, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.AdvanceApproved, req.Status)

	env.clock.tick()
	req, err = env.advances.Pay(fin, req.ID, AdvancePayment{PaidAmount: dec("3000"), Mode: "Bank Transfer"})
	require.NoError(t, err)
	assert.Equal(t, entity.AdvancePaid, req.Status)

	balance, err = env.ledger.BalanceFor(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, balance.RunningBalance.Equal(dec("3000")))
	assert.True(t, balance.TotalAdvancesReceived.Equal(dec("3000")))
	assert.Equal(t, 0, balance.PendingRequestsCount)
}

func TestAdvance_PaidAmountBounded(t *testing.T) {
	env := newTestEnv(t)
	fin := financeCtx()

	req, err := env.advances.CreateRequest(ownerCtx("u1"), CreateAdvanceInput{UserID: "u1", Amount: dec("1000"), Purpose: "Tools"})
	require.NoError(t, err)
	_, err = env.advances.Approve(fin, req.ID)
	require.NoError(t, err)

	_, err = env.advances.Pay(fin, req.ID, AdvancePayment{PaidAmount: dec("1500"), Mode: "Cash"})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = env.advances.Pay(fin, req.ID, AdvancePayment{PaidAmount: dec("-5"), Mode: "Cash"})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestAdvance_WithdrawOnlyOwnPending(t *testing.T) {
	env := newTestEnv(t)
	owner := ownerCtx("u1")
	fin := financeCtx()

	req, err := env.advances.CreateRequest(owner, CreateAdvanceInput{UserID: "u1", Amount: dec("500"), Purpose: "Fuel"})
	require.NoError(t, err)

	err = env.advances.Withdraw(ownerCtx("u2"), req.ID)
	var terr *entity.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, entity.FailureRole, terr.Reason)

	_, err = env.advances.Approve(fin, req.ID)
	require.NoError(t, err)

	err = env.advances.Withdraw(owner, req.ID)
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, entity.FailureState, terr.Reason)
}

func TestAdvance_DirectPay(t *testing.T) {
	env := newTestEnv(t)
	fin := financeCtx()

	req, err := env.advances.DirectPay(fin, CreateAdvanceInput{
		UserID: "u1", Amount: dec("750"), Purpose: "Emergency spares",
	}, AdvancePayment{Mode: "Cash"})
	require.NoError(t, err)
	assert.Equal(t, entity.AdvancePaid, req.Status)
	assert.True(t, req.IsDirectPayment)
	assert.True(t, req.PaidAmount.Equal(dec("750")))

	// Paid requests reject every further transition.
	_, err = env.advances.Approve(fin, req.ID)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	_, err = env.advances.DirectPay(ownerCtx("u1"), CreateAdvanceInput{UserID: "u1", Amount: dec("10"), Purpose: "x"}, AdvancePayment{Mode: "Cash"})
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
}

// Scenario S2: a paid sheet settles the advance paid in S1.
func TestLedger_SettlementRecoversAdvance(t *testing.T) {
	env := newTestEnv(t)
	owner := ownerCtx("u1")
	fin := financeCtx()

	req, err := env.advances.CreateRequest(owner, CreateAdvanceInput{UserID: "u1", Amount: dec("3000"), Purpose: "Site visit"})
	require.NoError(t, err)
	_, err = env.advances.Approve(fin, req.ID)
	require.NoError(t, err)
	_, err = env.advances.Pay(fin, req.ID, AdvancePayment{PaidAmount: dec("3000"), Mode: "Bank Transfer"})
	require.NoError(t, err)

	sheet, err := env.sheets.CreateSheet(owner, CreateSheetInput{
		UserID: "u1", Month: 3, Year: 2026,
		Items:           items("1000", "1000", "500"),
		AdvanceReceived: dec("3000"),
	})
	require.NoError(t, err)
	assert.True(t, sheet.NetClaimAmount.Equal(dec("-500")))

	sheet, err = env.sheets.Submit(owner, sheet.ID)
	require.NoError(t, err)
	sheet, err = env.sheets.Verify(fin, sheet.ID)
	require.NoError(t, err)
	sheet, err = env.sheets.Approve(fin, sheet.ID)
	require.NoError(t, err)
	env.clock.tick()
	sheet, err = env.sheets.Pay(fin, sheet.ID, SheetPayment{Mode: "Bank Transfer"})
	require.NoError(t, err)

	balance, err := env.ledger.BalanceFor(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, balance.TotalAdvanceUsed.Equal(dec("3000")))
	assert.True(t, balance.RunningBalance.IsZero(), "running = %s", balance.RunningBalance)
	assert.True(t, balance.RunningBalance.Equal(balance.TotalAdvancesReceived.Sub(balance.TotalAdvanceUsed)))

	// Recent transactions: settlement is newer than the advance.
	require.Len(t, balance.RecentTransactions, 2)
	assert.Equal(t, entity.LedgerSettlement, balance.RecentTransactions[0].Kind)
	assert.Equal(t, entity.LedgerAdvance, balance.RecentTransactions[1].Kind)
}

func TestLedger_SummaryAggregatesMatchPerUser(t *testing.T) {
	env := newTestEnv(t)
	fin := financeCtx()

	// Three users with different positions.
	for i, amount := range []string{"1000", "2500", "400"} {
		user := fmt.Sprintf("u%d", i+1)
		req, err := env.advances.CreateRequest(ownerCtx(user), CreateAdvanceInput{UserID: user, Amount: dec(amount), Purpose: "Advance"})
		require.NoError(t, err)
		_, err = env.advances.Approve(fin, req.ID)
		require.NoError(t, err)
		_, err = env.advances.Pay(fin, req.ID, AdvancePayment{PaidAmount: dec(amount), Mode: "Cash"})
		require.NoError(t, err)
	}

	// u2 settles 2500 through a paid sheet.
	owner := ownerCtx("u2")
	sheet, err := env.sheets.CreateSheet(owner, CreateSheetInput{
		UserID: "u2", Month: 3, Year: 2026, Items: items("2500"), AdvanceReceived: dec("2500"),
	})
	require.NoError(t, err)
	sheet, err = env.sheets.Submit(owner, sheet.ID)
	require.NoError(t, err)
	sheet, err = env.sheets.Verify(fin, sheet.ID)
	require.NoError(t, err)
	sheet, err = env.sheets.Approve(fin, sheet.ID)
	require.NoError(t, err)
	_, err = env.sheets.Pay(fin, sheet.ID, SheetPayment{Mode: "Cash"})
	require.NoError(t, err)

	summary, err := env.ledger.Summary(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Users, 3)

	given := decimal.Zero
	recovered := decimal.Zero
	for _, u := range summary.Users {
		given = given.Add(u.TotalAdvancesReceived)
		recovered = recovered.Add(u.TotalAdvanceUsed)
		assert.True(t, u.RunningBalance.Equal(u.TotalAdvancesReceived.Sub(u.TotalAdvanceUsed)))
	}
	assert.True(t, summary.TotalAdvancesGiven.Equal(given))
	assert.True(t, summary.TotalAdvancesRecovered.Equal(recovered))
	assert.True(t, summary.TotalAdvancesGiven.Equal(dec("3900")))
	assert.True(t, summary.TotalAdvancesRecovered.Equal(dec("2500")))
	// Outstanding: u1 1000 + u3 400.
	assert.True(t, summary.TotalOutstandingAdvances.Equal(dec("1400")))
	assert.Equal(t, 2, summary.EmployeesWithBalance)
}

func TestSummaryExporter_ProducesWorkbook(t *testing.T) {
	env := newTestEnv(t)
	fin := financeCtx()

	req, err := env.advances.CreateRequest(ownerCtx("u1"), CreateAdvanceInput{UserID: "u1", UserName: "Arun", Amount: dec("900"), Purpose: "Advance"})
	require.NoError(t, err)
	_, err = env.advances.Approve(fin, req.ID)
	require.NoError(t, err)
	_, err = env.advances.Pay(fin, req.ID, AdvancePayment{PaidAmount: dec("900"), Mode: "Cash"})
	require.NoError(t, err)

	exporter := NewSummaryExporter(env.ledger, zap.NewNop())
	data, err := exporter.Export(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	// xlsx files are zip archives.
	assert.Equal(t, byte('P'), data[0])
	assert.Equal(t, byte('K'), data[1])
}
