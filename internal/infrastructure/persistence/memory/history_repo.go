package memory

import (
	"context"

	"github.com/garyjia/nodue-clearance/internal/application/port"
	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

// HistoryRepository implements port.HistoryRepository on a Store
type HistoryRepository struct {
	store *Store
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(store *Store) port.HistoryRepository {
	return &HistoryRepository{store: store}
}

// Create appends a record. The id is assigned when the write is applied.
func (r *HistoryRepository) Create(ctx context.Context, history *entity.RequestHistory) error {
	record := *history
	return r.store.write(ctx, op{
		check: func(s *Store) error { return nil },
		apply: func(s *Store) {
			s.historyID++
			record.ID = s.historyID
			history.ID = record.ID
			s.history[record.RequestID] = append(s.history[record.RequestID], &record)
		},
	})
}

// GetByRequestID returns copies of the trail in insertion order
func (r *HistoryRepository) GetByRequestID(ctx context.Context, requestID string) ([]*entity.RequestHistory, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var records []*entity.RequestHistory
	for _, h := range r.store.history[requestID] {
		c := *h
		records = append(records, &c)
	}
	return records, nil
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
