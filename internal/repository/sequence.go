package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/powerquip/erp-backend/internal/store"
)

// maxAllocRetries bounds compare-and-swap retries under contention.
const maxAllocRetries = 5

type counterDoc struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Year  int    `json:"year"`
	Value int    `json:"value"`
}

// SequenceAllocator hands out year-scoped monotonic counters backed by the
// counters collection. Values are assigned once and never reused, so a
// deleted document does not free its number.
type SequenceAllocator struct {
	col    store.Collection
	logger *zap.Logger
}

// NewSequenceAllocator creates an allocator over the counters collection.
func NewSequenceAllocator(st store.Store, logger *zap.Logger) *SequenceAllocator {
	return &SequenceAllocator{
		col:    st.Collection(store.CollectionCounters),
		logger: logger,
	}
}

// Next returns the next value of the (kind, year) counter. The increment is
// a compare-and-swap on the stored value; a concurrent increment causes a
// re-read and retry.
func (s *SequenceAllocator) Next(ctx context.Context, kind string, year int) (int, error) {
	id := fmt.Sprintf("%s/%d", kind, year)

	for attempt := 0; attempt < maxAllocRetries; attempt++ {
		var cur counterDoc
		err := s.col.FindOne(ctx, store.Filter{"id": id}, &cur)
		if errors.Is(err, store.ErrNoDocuments) {
			doc := counterDoc{ID: id, Kind: kind, Year: year, Value: 1}
			if err := s.col.InsertOne(ctx, id, doc); err != nil {
				if errors.Is(err, store.ErrDuplicateKey) {
					continue
				}
				return 0, fmt.Errorf("failed to create counter %s: %w", id, err)
			}
			return 1, nil
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read counter %s: %w", id, err)
		}

		next := counterDoc{ID: id, Kind: kind, Year: year, Value: cur.Value + 1}
		matched, err := s.col.UpdateOne(ctx, store.Filter{"id": id, "value": cur.Value}, next)
		if err != nil {
			return 0, fmt.Errorf("failed to advance counter %s: %w", id, err)
		}
		if matched {
			return next.Value, nil
		}
		s.logger.Debug("Counter contention, retrying", zap.String("counter", id))
	}
	return 0, fmt.Errorf("counter %s: too much contention", id)
}
