package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/powerquip/erp-backend/internal/domain/entity"
	"github.com/powerquip/erp-backend/internal/store"
)

const advanceCounterKind = "advance_request"

// AdvanceRepository persists advance requests in the advance_requests
// collection.
type AdvanceRepository struct {
	col    store.Collection
	seq    *SequenceAllocator
	logger *zap.Logger
}

// NewAdvanceRepository creates a new advance repository.
func NewAdvanceRepository(st store.Store, seq *SequenceAllocator, logger *zap.Logger) *AdvanceRepository {
	return &AdvanceRepository{
		col:    st.Collection(store.CollectionAdvanceRequests),
		seq:    seq,
		logger: logger,
	}
}

// Create allocates a request number and inserts the request, retrying on a
// unique-constraint violation of the generated number.
func (r *AdvanceRepository) Create(ctx context.Context, req *entity.AdvanceRequest) error {
	year := req.CreatedAt.Year()
	for attempt := 0; attempt < maxAllocRetries; attempt++ {
		n, err := r.seq.Next(ctx, advanceCounterKind, year)
		if err != nil {
			return err
		}
		req.RequestNo = fmt.Sprintf("ARN/%d/%04d", year, n)

		err = r.col.InsertOne(ctx, req.ID, req)
		if err == nil {
			r.logger.Info("Created advance request",
				zap.String("request_no", req.RequestNo),
				zap.String("user_id", req.UserID))
			return nil
		}
		if !errors.Is(err, store.ErrDuplicateKey) {
			return err
		}
	}
	return fmt.Errorf("failed to allocate advance request number for year %d", year)
}

// GetByID returns a request by document id.
func (r *AdvanceRepository) GetByID(ctx context.Context, id string) (*entity.AdvanceRequest, error) {
	var req entity.AdvanceRequest
	err := r.col.FindOne(ctx, store.Filter{"id": id}, &req)
	if errors.Is(err, store.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: advance request %s", entity.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ReplaceIf replaces the stored request only when its persisted status
// still equals expected.
func (r *AdvanceRepository) ReplaceIf(ctx context.Context, req *entity.AdvanceRequest, expected entity.AdvanceStatus) (bool, error) {
	return r.col.UpdateOne(ctx, store.Filter{"id": req.ID, "status": string(expected)}, req)
}

// DeleteIfPending removes a request only while it is still pending.
// Withdrawal is a hard delete per the workflow contract.
func (r *AdvanceRepository) DeleteIfPending(ctx context.Context, id string) (bool, error) {
	return r.col.DeleteOne(ctx, store.Filter{"id": id, "status": string(entity.AdvancePending)})
}

// ListByUser returns all requests belonging to a user.
func (r *AdvanceRepository) ListByUser(ctx context.Context, userID string) ([]entity.AdvanceRequest, error) {
	var reqs []entity.AdvanceRequest
	err := r.col.Find(ctx, store.Filter{"user_id": userID}, store.FindOptions{}, &reqs)
	return reqs, err
}

// ListAll returns every advance request.
func (r *AdvanceRepository) ListAll(ctx context.Context) ([]entity.AdvanceRequest, error) {
	var reqs []entity.AdvanceRequest
	err := r.col.Find(ctx, store.Filter{}, store.FindOptions{}, &reqs)
	return reqs, err
}
