// Package finance implements the expense sheet and advance request
// workflows: typed state machines over the persisted documents, the
// running-balance ledger, and the balance summary export.
package finance

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/powerquip/erp-backend/internal/auth"
	"github.com/powerquip/erp-backend/internal/domain/entity"
	"github.com/powerquip/erp-backend/internal/domain/event"
	"github.com/powerquip/erp-backend/internal/domain/workflow"
	"github.com/powerquip/erp-backend/internal/repository"
	"github.com/powerquip/erp-backend/pkg/utils"
)

// CreateSheetInput carries everything needed to open a sheet for a period.
type CreateSheetInput struct {
	UserID      string               `json:"user_id"`
	UserName    string               `json:"user_name"`
	EmpID       string               `json:"emp_id"`
	Department  string               `json:"department"`
	Designation string               `json:"designation"`
	Month       int                  `json:"month"`
	Year        int                  `json:"year"`
	Items       []entity.ExpenseItem `json:"items"`

	AdvanceReceived     decimal.Decimal `json:"advance_received"`
	AdvanceReceivedDate string          `json:"advance_received_date"`
	PreviousDue         decimal.Decimal `json:"previous_due"`
}

// UpdateSheetInput edits settlement fields and optionally replaces items.
// Nil fields are left untouched.
type UpdateSheetInput struct {
	Items               *[]entity.ExpenseItem `json:"items,omitempty"`
	AdvanceReceived     *decimal.Decimal      `json:"advance_received,omitempty"`
	AdvanceReceivedDate *string               `json:"advance_received_date,omitempty"`
	PreviousDue         *decimal.Decimal      `json:"previous_due,omitempty"`
}

// SheetPayment records how an approved sheet was paid.
type SheetPayment struct {
	Mode      string `json:"mode"`
	Reference string `json:"reference"`
}

// SheetService drives the expense sheet lifecycle.
type SheetService struct {
	sheets *repository.SheetRepository
	clock  utils.Clock
	ids    utils.IDGen
	logger *zap.Logger
}

// NewSheetService creates a new sheet service.
func NewSheetService(sheets *repository.SheetRepository, clock utils.Clock, ids utils.IDGen, logger *zap.Logger) *SheetService {
	return &SheetService{sheets: sheets, clock: clock, ids: ids, logger: logger}
}

// CreateSheet opens a draft sheet for (user, month, year). A second sheet
// for the same period fails with ErrDuplicateSheet.
func (s *SheetService) CreateSheet(ctx context.Context, in CreateSheetInput) (*entity.ExpenseSheet, error) {
	if err := utils.ValidateMonth(in.Month); err != nil {
		return nil, entity.Invalid("%v", err)
	}
	if err := utils.ValidateYear(in.Year); err != nil {
		return nil, entity.Invalid("%v", err)
	}
	if in.UserID == "" {
		return nil, entity.Invalid("user_id is required")
	}
	for _, item := range in.Items {
		if err := entity.ValidateItem(item); err != nil {
			return nil, err
		}
	}
	if in.AdvanceReceived.IsNegative() {
		return nil, entity.Invalid("advance_received must not be negative")
	}

	now := s.clock.Now()
	sheet := &entity.ExpenseSheet{
		ID:                  s.ids.NewID(),
		UserID:              in.UserID,
		UserName:            in.UserName,
		EmpID:               in.EmpID,
		Department:          in.Department,
		Designation:         in.Designation,
		Month:               in.Month,
		Year:                in.Year,
		Items:               in.Items,
		AdvanceReceived:     in.AdvanceReceived,
		AdvanceReceivedDate: in.AdvanceReceivedDate,
		PreviousDue:         in.PreviousDue,
		Status:              entity.SheetDraft,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	sheet.Recompute()

	if err := s.sheets.Create(ctx, sheet); err != nil {
		return nil, err
	}
	event.New(event.TypeSheetCreated, sheet.ID, sheet.SheetNo, in.UserID).
		With("month", in.Month).
		With("year", in.Year).
		Emit(s.logger)
	return sheet, nil
}

// Get returns a sheet by id.
func (s *SheetService) Get(ctx context.Context, id string) (*entity.ExpenseSheet, error) {
	return s.sheets.GetByID(ctx, id)
}

// List returns the review queue, newest first.
func (s *SheetService) List(ctx context.Context, status string, limit, offset int) ([]entity.ExpenseSheet, error) {
	if status != "" {
		switch entity.SheetStatus(status) {
		case entity.SheetDraft, entity.SheetPending, entity.SheetVerified,
			entity.SheetApproved, entity.SheetPaid, entity.SheetRejected:
		default:
			return nil, entity.Invalid("unknown sheet status %q", status)
		}
	}
	return s.sheets.List(ctx, status, limit, offset)
}

// ListForUser returns all sheets of one user.
func (s *SheetService) ListForUser(ctx context.Context, userID string) ([]entity.ExpenseSheet, error) {
	return s.sheets.ListByUser(ctx, userID)
}

// edit applies a mutation to a sheet in an editable state, recomputes the
// derived fields and persists conditionally on the unchanged status.
func (s *SheetService) edit(ctx context.Context, sheetID string, mutate func(*entity.ExpenseSheet) error) (*entity.ExpenseSheet, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return nil, entity.Invalid("no acting user on request")
	}

	sheet, err := s.sheets.GetByID(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if sheet.UserID != actor.UserID && !actor.IsFinance() {
		return nil, &entity.TransitionError{
			Entity:    "expense_sheet",
			Current:   string(sheet.Status),
			Requested: string(sheet.Status),
			Reason:    entity.FailureRole,
		}
	}
	if !sheet.Editable() {
		return nil, entity.ErrImmutableSheet
	}

	prev := sheet.Status
	if err := mutate(sheet); err != nil {
		return nil, err
	}
	sheet.Recompute()
	sheet.UpdatedAt = s.clock.Now()

	matched, err := s.sheets.ReplaceIf(ctx, sheet, prev)
	if err != nil {
		return nil, err
	}
	if !matched {
		// The sheet left its editable state under us.
		return nil, entity.ErrImmutableSheet
	}
	return sheet, nil
}

// AddItem appends an expense item. Allowed only in draft or rejected.
func (s *SheetService) AddItem(ctx context.Context, sheetID string, item entity.ExpenseItem) (*entity.ExpenseSheet, error) {
	if err := entity.ValidateItem(item); err != nil {
		return nil, err
	}
	return s.edit(ctx, sheetID, func(sheet *entity.ExpenseSheet) error {
		sheet.Items = append(sheet.Items, item)
		return nil
	})
}

// UpdateSheet edits settlement fields and optionally replaces the items.
func (s *SheetService) UpdateSheet(ctx context.Context, sheetID string, in UpdateSheetInput) (*entity.ExpenseSheet, error) {
	if in.Items != nil {
		for _, item := range *in.Items {
			if err := entity.ValidateItem(item); err != nil {
				return nil, err
			}
		}
	}
	if in.AdvanceReceived != nil && in.AdvanceReceived.IsNegative() {
		return nil, entity.Invalid("advance_received must not be negative")
	}
	return s.edit(ctx, sheetID, func(sheet *entity.ExpenseSheet) error {
		if in.Items != nil {
			sheet.Items = *in.Items
		}
		if in.AdvanceReceived != nil {
			sheet.AdvanceReceived = *in.AdvanceReceived
		}
		if in.AdvanceReceivedDate != nil {
			sheet.AdvanceReceivedDate = *in.AdvanceReceivedDate
		}
		if in.PreviousDue != nil {
			sheet.PreviousDue = *in.PreviousDue
		}
		return nil
	})
}

// DeleteItem removes the item at index.
func (s *SheetService) DeleteItem(ctx context.Context, sheetID string, index int) (*entity.ExpenseSheet, error) {
	return s.edit(ctx, sheetID, func(sheet *entity.ExpenseSheet) error {
		if index < 0 || index >= len(sheet.Items) {
			return entity.Invalid("item index %d out of range", index)
		}
		sheet.Items = append(sheet.Items[:index], sheet.Items[index+1:]...)
		return nil
	})
}

// sheetTargets names the state a trigger leads to, for error reporting.
var sheetTargets = map[workflow.Trigger]string{
	workflow.TriggerSubmit:  string(entity.SheetPending),
	workflow.TriggerVerify:  string(entity.SheetVerified),
	workflow.TriggerApprove: string(entity.SheetApproved),
	workflow.TriggerPay:     string(entity.SheetPaid),
	workflow.TriggerReject:  string(entity.SheetRejected),
}

// transition fires a trigger on the sheet machine and persists the result
// conditionally on the still-unchanged source status. ownerOnly selects
// the actor class allowed to fire it.
func (s *SheetService) transition(ctx context.Context, sheetID string, trigger workflow.Trigger, ownerOnly bool, mutate func(*entity.ExpenseSheet, auth.Actor)) (*entity.ExpenseSheet, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return nil, entity.Invalid("no acting user on request")
	}

	sheet, err := s.sheets.GetByID(ctx, sheetID)
	if err != nil {
		return nil, err
	}

	roleErr := &entity.TransitionError{
		Entity:    "expense_sheet",
		Current:   string(sheet.Status),
		Requested: sheetTargets[trigger],
		Reason:    entity.FailureRole,
	}
	if ownerOnly && sheet.UserID != actor.UserID {
		return nil, roleErr
	}
	if !ownerOnly && !actor.IsFinance() {
		return nil, roleErr
	}

	machine := workflow.NewSheetMachine(workflow.State(sheet.Status))
	if err := machine.Fire(ctx, trigger); err != nil {
		if errors.Is(err, workflow.ErrInvalidTransition) || errors.Is(err, workflow.ErrGuardFailed) {
			return nil, &entity.TransitionError{
				Entity:    "expense_sheet",
				Current:   string(sheet.Status),
				Requested: sheetTargets[trigger],
				Reason:    entity.FailureState,
			}
		}
		return nil, err
	}

	prev := sheet.Status
	sheet.Status = entity.SheetStatus(machine.State())
	mutate(sheet, actor)
	sheet.Recompute()
	sheet.UpdatedAt = s.clock.Now()

	matched, err := s.sheets.ReplaceIf(ctx, sheet, prev)
	if err != nil {
		return nil, err
	}
	if !matched {
		// A concurrent transition consumed the source state first.
		current, gerr := s.sheets.GetByID(ctx, sheetID)
		currentStatus := string(prev)
		if gerr == nil {
			currentStatus = string(current.Status)
		}
		return nil, &entity.TransitionError{
			Entity:    "expense_sheet",
			Current:   currentStatus,
			Requested: sheetTargets[trigger],
			Reason:    entity.FailureState,
		}
	}

	event.New(sheetEventTypes[trigger], sheet.ID, sheet.SheetNo, actor.UserID).
		With("from", string(prev)).
		With("to", string(sheet.Status)).
		Emit(s.logger)
	return sheet, nil
}

// sheetEventTypes maps triggers to the audit events they produce.
var sheetEventTypes = map[workflow.Trigger]event.Type{
	workflow.TriggerSubmit:  event.TypeSheetSubmitted,
	workflow.TriggerVerify:  event.TypeSheetVerified,
	workflow.TriggerApprove: event.TypeSheetApproved,
	workflow.TriggerReject:  event.TypeSheetRejected,
	workflow.TriggerPay:     event.TypeSheetPaid,
}

// Submit moves a draft or rejected sheet to pending. Requires at least one item.
func (s *SheetService) Submit(ctx context.Context, sheetID string) (*entity.ExpenseSheet, error) {
	sheet, err := s.sheets.GetByID(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if len(sheet.Items) == 0 {
		return nil, entity.Invalid("cannot submit a sheet without items")
	}
	return s.transition(ctx, sheetID, workflow.TriggerSubmit, true, func(sheet *entity.ExpenseSheet, actor auth.Actor) {
		now := s.clock.Now()
		sheet.SubmittedAt = &now
		sheet.RejectionReason = ""
	})
}

// Verify moves a pending sheet to verified.
func (s *SheetService) Verify(ctx context.Context, sheetID string) (*entity.ExpenseSheet, error) {
	return s.transition(ctx, sheetID, workflow.TriggerVerify, false, func(sheet *entity.ExpenseSheet, actor auth.Actor) {
		now := s.clock.Now()
		sheet.VerifiedBy = actor.UserID
		sheet.VerifiedAt = &now
	})
}

// Approve moves a verified sheet to approved.
func (s *SheetService) Approve(ctx context.Context, sheetID string) (*entity.ExpenseSheet, error) {
	return s.transition(ctx, sheetID, workflow.TriggerApprove, false, func(sheet *entity.ExpenseSheet, actor auth.Actor) {
		now := s.clock.Now()
		sheet.ApprovedBy = actor.UserID
		sheet.ApprovedAt = &now
	})
}

// Reject moves a pending, verified or approved sheet to rejected with a reason.
func (s *SheetService) Reject(ctx context.Context, sheetID, reason string) (*entity.ExpenseSheet, error) {
	if reason == "" {
		return nil, entity.Invalid("rejection reason is required")
	}
	return s.transition(ctx, sheetID, workflow.TriggerReject, false, func(sheet *entity.ExpenseSheet, actor auth.Actor) {
		sheet.RejectionReason = reason
	})
}

// Pay settles an approved sheet and records the payment metadata. From
// here on the sheet is immutable.
func (s *SheetService) Pay(ctx context.Context, sheetID string, payment SheetPayment) (*entity.ExpenseSheet, error) {
	if payment.Mode == "" {
		return nil, entity.Invalid("payment mode is required")
	}
	return s.transition(ctx, sheetID, workflow.TriggerPay, false, func(sheet *entity.ExpenseSheet, actor auth.Actor) {
		now := s.clock.Now()
		sheet.PaidBy = actor.UserID
		sheet.PaidAt = &now
		sheet.PaymentMode = payment.Mode
		sheet.PaymentReference = payment.Reference
	})
}
