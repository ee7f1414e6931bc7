package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/powerquip/erp-backend/internal/domain/entity"
	"github.com/powerquip/erp-backend/internal/store"
)

const sheetCounterKind = "expense_sheet"

// SheetRepository persists expense sheets in the expense_sheets collection.
type SheetRepository struct {
	col    store.Collection
	seq    *SequenceAllocator
	logger *zap.Logger
}

// NewSheetRepository creates a new sheet repository.
func NewSheetRepository(st store.Store, seq *SequenceAllocator, logger *zap.Logger) *SheetRepository {
	return &SheetRepository{
		col:    st.Collection(store.CollectionExpenseSheets),
		seq:    seq,
		logger: logger,
	}
}

// Create allocates a sheet number and inserts the sheet. The period is
// checked before the number allocation so a duplicate (user, month, year)
// does not burn a counter value. A unique-constraint violation on insert
// (a racing create for the same period or number) triggers a re-check.
func (r *SheetRepository) Create(ctx context.Context, sheet *entity.ExpenseSheet) error {
	for attempt := 0; attempt < maxAllocRetries; attempt++ {
		existing, err := r.FindByUserMonthYear(ctx, sheet.UserID, sheet.Month, sheet.Year)
		if err != nil && !errors.Is(err, entity.ErrNotFound) {
			return err
		}
		if existing != nil {
			return entity.ErrDuplicateSheet
		}

		n, err := r.seq.Next(ctx, sheetCounterKind, sheet.Year)
		if err != nil {
			return err
		}
		sheet.SheetNo = fmt.Sprintf("ES/%d/%04d", sheet.Year, n)

		err = r.col.InsertOne(ctx, sheet.ID, sheet)
		if err == nil {
			r.logger.Info("Created expense sheet",
				zap.String("sheet_no", sheet.SheetNo),
				zap.String("user_id", sheet.UserID))
			return nil
		}
		if !errors.Is(err, store.ErrDuplicateKey) {
			return err
		}
	}
	return entity.ErrDuplicateSheet
}

// GetByID returns a sheet by document id.
func (r *SheetRepository) GetByID(ctx context.Context, id string) (*entity.ExpenseSheet, error) {
	var sheet entity.ExpenseSheet
	err := r.col.FindOne(ctx, store.Filter{"id": id}, &sheet)
	if errors.Is(err, store.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: expense sheet %s", entity.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &sheet, nil
}

// FindByUserMonthYear returns the sheet for a (user, month, year) period,
// or nil with ErrNotFound when none exists.
func (r *SheetRepository) FindByUserMonthYear(ctx context.Context, userID string, month, year int) (*entity.ExpenseSheet, error) {
	var sheet entity.ExpenseSheet
	err := r.col.FindOne(ctx, store.Filter{"user_id": userID, "month": month, "year": year}, &sheet)
	if errors.Is(err, store.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: sheet for %s %d/%d", entity.ErrNotFound, userID, month, year)
	}
	if err != nil {
		return nil, err
	}
	return &sheet, nil
}

// ReplaceIf replaces the stored sheet only when its persisted status still
// equals expected. A false return means a concurrent transition won.
func (r *SheetRepository) ReplaceIf(ctx context.Context, sheet *entity.ExpenseSheet, expected entity.SheetStatus) (bool, error) {
	return r.col.UpdateOne(ctx, store.Filter{"id": sheet.ID, "status": string(expected)}, sheet)
}

// ListByUser returns all sheets belonging to a user.
func (r *SheetRepository) ListByUser(ctx context.Context, userID string) ([]entity.ExpenseSheet, error) {
	var sheets []entity.ExpenseSheet
	err := r.col.Find(ctx, store.Filter{"user_id": userID}, store.FindOptions{}, &sheets)
	return sheets, err
}

// ListByStatus returns all sheets in the given status.
func (r *SheetRepository) ListByStatus(ctx context.Context, status entity.SheetStatus) ([]entity.ExpenseSheet, error) {
	var sheets []entity.ExpenseSheet
	err := r.col.Find(ctx, store.Filter{"status": string(status)}, store.FindOptions{}, &sheets)
	return sheets, err
}

// List returns sheets for the review queue, newest first, optionally
// filtered by status.
func (r *SheetRepository) List(ctx context.Context, status string, limit, offset int) ([]entity.ExpenseSheet, error) {
	filter := store.Filter{}
	if status != "" {
		filter["status"] = status
	}
	opts := store.FindOptions{
		Sort:   &store.Sort{Field: "created_at", Desc: true},
		Limit:  limit,
		Offset: offset,
	}
	var sheets []entity.ExpenseSheet
	err := r.col.Find(ctx, filter, opts, &sheets)
	return sheets, err
}
