package finance

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/powerquip/erp-backend/internal/auth"
	"github.com/powerquip/erp-backend/internal/domain/entity"
	"github.com/powerquip/erp-backend/internal/domain/event"
	"github.com/powerquip/erp-backend/internal/domain/workflow"
	"github.com/powerquip/erp-backend/internal/repository"
	"github.com/powerquip/erp-backend/pkg/utils"
)

// CreateAdvanceInput carries a new advance request.
type CreateAdvanceInput struct {
	UserID      string          `json:"user_id"`
	UserName    string          `json:"user_name"`
	EmpID       string          `json:"emp_id"`
	Department  string          `json:"department"`
	Amount      decimal.Decimal `json:"amount"`
	Purpose     string          `json:"purpose"`
	ProjectName string          `json:"project_name"`
}

// AdvancePayment records the payout of an approved (or direct) advance.
type AdvancePayment struct {
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Mode       string          `json:"mode"`
	Reference  string          `json:"reference"`
	Date       string          `json:"date"`
}

// AdvanceService drives the advance request lifecycle.
type AdvanceService struct {
	advances *repository.AdvanceRepository
	clock    utils.Clock
	ids      utils.IDGen
	logger   *zap.Logger
}

// NewAdvanceService creates a new advance service.
func NewAdvanceService(advances *repository.AdvanceRepository, clock utils.Clock, ids utils.IDGen, logger *zap.Logger) *AdvanceService {
	return &AdvanceService{advances: advances, clock: clock, ids: ids, logger: logger}
}

// CreateRequest opens a pending advance request for the acting user.
func (s *AdvanceService) CreateRequest(ctx context.Context, in CreateAdvanceInput) (*entity.AdvanceRequest, error) {
	now := s.clock.Now()
	req := &entity.AdvanceRequest{
		ID:          s.ids.NewID(),
		UserID:      in.UserID,
		UserName:    in.UserName,
		EmpID:       in.EmpID,
		Department:  in.Department,
		Amount:      in.Amount,
		Purpose:     in.Purpose,
		ProjectName: in.ProjectName,
		Status:      entity.AdvancePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.advances.Create(ctx, req); err != nil {
		return nil, err
	}
	event.New(event.TypeAdvanceCreated, req.ID, req.RequestNo, in.UserID).
		With("amount", in.Amount.String()).
		Emit(s.logger)
	return req, nil
}

// Get returns a request by id.
func (s *AdvanceService) Get(ctx context.Context, id string) (*entity.AdvanceRequest, error) {
	return s.advances.GetByID(ctx, id)
}

// ListForUser returns all requests of one user.
func (s *AdvanceService) ListForUser(ctx context.Context, userID string) ([]entity.AdvanceRequest, error) {
	return s.advances.ListByUser(ctx, userID)
}

// ListAll returns every advance request, newest first.
func (s *AdvanceService) ListAll(ctx context.Context) ([]entity.AdvanceRequest, error) {
	return s.advances.ListAll(ctx)
}

// Withdraw hard-deletes the acting user's own request while it is still pending.
func (s *AdvanceService) Withdraw(ctx context.Context, id string) error {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return entity.Invalid("no acting user on request")
	}
	req, err := s.advances.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if req.UserID != actor.UserID {
		return &entity.TransitionError{
			Entity:    "advance_request",
			Current:   string(req.Status),
			Requested: "withdrawn",
			Reason:    entity.FailureRole,
		}
	}
	deleted, err := s.advances.DeleteIfPending(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return &entity.TransitionError{
			Entity:    "advance_request",
			Current:   string(req.Status),
			Requested: "withdrawn",
			Reason:    entity.FailureState,
		}
	}
	event.New(event.TypeAdvanceWithdrawn, req.ID, req.RequestNo, actor.UserID).Emit(s.logger)
	return nil
}

var advanceTargets = map[workflow.Trigger]string{
	workflow.TriggerApprove: string(entity.AdvanceApproved),
	workflow.TriggerReject:  string(entity.AdvanceRejected),
	workflow.TriggerPay:     string(entity.AdvancePaid),
}

var advanceEventTypes = map[workflow.Trigger]event.Type{
	workflow.TriggerApprove: event.TypeAdvanceApproved,
	workflow.TriggerReject:  event.TypeAdvanceRejected,
	workflow.TriggerPay:     event.TypeAdvancePaid,
}

// transition fires a trigger on the advance machine and persists the
// result conditionally on the still-unchanged source status.
func (s *AdvanceService) transition(ctx context.Context, id string, trigger workflow.Trigger, mutate func(*entity.AdvanceRequest, auth.Actor)) (*entity.AdvanceRequest, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return nil, entity.Invalid("no acting user on request")
	}

	req, err := s.advances.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsFinance() {
		return nil, &entity.TransitionError{
			Entity:    "advance_request",
			Current:   string(req.Status),
			Requested: advanceTargets[trigger],
			Reason:    entity.FailureRole,
		}
	}

	machine := workflow.NewAdvanceMachine(workflow.State(req.Status))
	if err := machine.Fire(ctx, trigger); err != nil {
		if errors.Is(err, workflow.ErrInvalidTransition) || errors.Is(err, workflow.ErrGuardFailed) {
			return nil, &entity.TransitionError{
				Entity:    "advance_request",
				Current:   string(req.Status),
				Requested: advanceTargets[trigger],
				Reason:    entity.FailureState,
			}
		}
		return nil, err
	}

	prev := req.Status
	req.Status = entity.AdvanceStatus(machine.State())
	mutate(req, actor)
	req.UpdatedAt = s.clock.Now()

	matched, err := s.advances.ReplaceIf(ctx, req, prev)
	if err != nil {
		return nil, err
	}
	if !matched {
		current, gerr := s.advances.GetByID(ctx, id)
		currentStatus := string(prev)
		if gerr == nil {
			currentStatus = string(current.Status)
		}
		return nil, &entity.TransitionError{
			Entity:    "advance_request",
			Current:   currentStatus,
			Requested: advanceTargets[trigger],
			Reason:    entity.FailureState,
		}
	}

	event.New(advanceEventTypes[trigger], req.ID, req.RequestNo, actor.UserID).
		With("from", string(prev)).
		With("to", string(req.Status)).
		Emit(s.logger)
	return req, nil
}

// Approve moves a pending request to approved.
func (s *AdvanceService) Approve(ctx context.Context, id string) (*entity.AdvanceRequest, error) {
	return s.transition(ctx, id, workflow.TriggerApprove, func(req *entity.AdvanceRequest, actor auth.Actor) {
		now := s.clock.Now()
		req.ApprovedBy = actor.UserID
		req.ApprovedAt = &now
	})
}

// Reject refuses a pending or approved request with a reason.
func (s *AdvanceService) Reject(ctx context.Context, id, reason string) (*entity.AdvanceRequest, error) {
	if reason == "" {
		return nil, entity.Invalid("rejection reason is required")
	}
	return s.transition(ctx, id, workflow.TriggerReject, func(req *entity.AdvanceRequest, actor auth.Actor) {
		now := s.clock.Now()
		req.RejectedBy = actor.UserID
		req.RejectedAt = &now
		req.RejectionReason = reason
	})
}

// Pay records the payout of an approved request. The paid amount must be
// positive and no larger than the requested amount.
func (s *AdvanceService) Pay(ctx context.Context, id string, payment AdvancePayment) (*entity.AdvanceRequest, error) {
	if err := validateAdvancePayment(payment); err != nil {
		return nil, err
	}
	req, err := s.advances.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.PaidAmount.GreaterThan(req.Amount) {
		return nil, entity.Invalid("paid_amount %s exceeds requested amount %s", payment.PaidAmount, req.Amount)
	}
	return s.transition(ctx, id, workflow.TriggerPay, func(req *entity.AdvanceRequest, actor auth.Actor) {
		applyAdvancePayment(req, payment, actor.UserID, s.clock.Now())
	})
}

// DirectPay creates a request that is paid immediately, skipping approval.
func (s *AdvanceService) DirectPay(ctx context.Context, in CreateAdvanceInput, payment AdvancePayment) (*entity.AdvanceRequest, error) {
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return nil, entity.Invalid("no acting user on request")
	}
	if !actor.IsFinance() {
		return nil, &entity.TransitionError{
			Entity:    "advance_request",
			Current:   "(new)",
			Requested: string(entity.AdvancePaid),
			Reason:    entity.FailureRole,
		}
	}

	now := s.clock.Now()
	req := &entity.AdvanceRequest{
		ID:              s.ids.NewID(),
		UserID:          in.UserID,
		UserName:        in.UserName,
		EmpID:           in.EmpID,
		Department:      in.Department,
		Amount:          in.Amount,
		Purpose:         in.Purpose,
		ProjectName:     in.ProjectName,
		Status:          entity.AdvancePaid,
		IsDirectPayment: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if payment.PaidAmount.IsZero() {
		payment.PaidAmount = in.Amount
	}
	if err := validateAdvancePayment(payment); err != nil {
		return nil, err
	}
	if payment.PaidAmount.GreaterThan(req.Amount) {
		return nil, entity.Invalid("paid_amount %s exceeds requested amount %s", payment.PaidAmount, req.Amount)
	}
	applyAdvancePayment(req, payment, actor.UserID, now)

	if err := s.advances.Create(ctx, req); err != nil {
		return nil, err
	}
	event.New(event.TypeAdvancePaid, req.ID, req.RequestNo, actor.UserID).
		With("direct_payment", "true").
		With("paid_amount", req.PaidAmount.String()).
		Emit(s.logger)
	return req, nil
}

func validateAdvancePayment(payment AdvancePayment) error {
	if !payment.PaidAmount.IsPositive() {
		return entity.Invalid("paid_amount must be positive")
	}
	if payment.Mode == "" {
		return entity.Invalid("payment mode is required")
	}
	return nil
}

func applyAdvancePayment(req *entity.AdvanceRequest, payment AdvancePayment, by string, now time.Time) {
	req.PaidBy = by
	req.PaidAt = &now
	req.PaidAmount = payment.PaidAmount
	req.PaymentMode = payment.Mode
	req.PaymentReference = payment.Reference
	req.PaymentDate = payment.Date
	if req.PaymentDate == "" {
		req.PaymentDate = now.Format("02/01/2006")
	}
}
