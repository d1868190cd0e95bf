package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/garyjia/nodue-clearance/internal/application/port"
	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

// RequestRepository implements port.RequestRepository on a Store
type RequestRepository struct {
	store *Store
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(store *Store) port.RequestRepository {
	return &RequestRepository{store: store}
}

// Create stores a copy of the aggregate
func (r *RequestRepository) Create(ctx context.Context, req *entity.Request) error {
	stored := req.Clone()
	return r.store.write(ctx, op{
		check: func(s *Store) error {
			if _, ok := s.requests[stored.ID]; ok {
				return fmt.Errorf("request %s already exists", stored.ID)
			}
			if _, ok := s.refs[stored.ReferenceCode]; ok {
				return port.ErrDuplicateReference
			}
			if stored.Status.IsOpen() && s.hasOpen(stored.OwnerID) {
				return port.ErrOpenRequestExists
			}
			return nil
		},
		apply: func(s *Store) {
			s.requests[stored.ID] = stored
			s.refs[stored.ReferenceCode] = stored.ID
		},
	})
}

// GetByID returns a copy of the aggregate
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*entity.Request, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	req, ok := r.store.requests[id]
	if !ok {
		return nil, nil
	}
	return req.Clone(), nil
}

// GetForUpdate locks the request for the rest of the transaction and
// returns a copy of it
func (r *RequestRepository) GetForUpdate(ctx context.Context, id string) (*entity.Request, error) {
	if err := r.store.lock(ctx, r.store.requestLocks, "request:"+id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// SaveDecision replaces the stored stage and request status when the stored
// version still matches
func (r *RequestRepository) SaveDecision(ctx context.Context, req *entity.Request, stage *entity.Stage) error {
	decided := stage.Clone()
	expected := req.Version
	status := req.Status
	position := req.CurrentStagePosition
	updatedAt := req.UpdatedAt

	err := r.store.write(ctx, op{
		check: func(s *Store) error {
			current, ok := s.requests[req.ID]
			if !ok || current.Version != expected {
				return port.ErrConcurrentUpdate
			}
			idx := current.StagePosition(decided.ID)
			if idx < 0 || current.Stages[idx].IsActioned() {
				return port.ErrConcurrentUpdate
			}
			return nil
		},
		apply: func(s *Store) {
			next := s.requests[req.ID].Clone()
			next.Stages[next.StagePosition(decided.ID)] = decided
			next.Status = status
			next.CurrentStagePosition = position
			next.UpdatedAt = updatedAt
			next.Version = expected + 1
			s.requests[req.ID] = next
		},
	})
	if err != nil {
		return err
	}

	req.Version++
	return nil
}

// HasOpenRequest reports whether owner has an open request. Inside a
// transaction it holds the owner lock until the transaction ends.
func (r *RequestRepository) HasOpenRequest(ctx context.Context, ownerID string) (bool, error) {
	if txFrom(ctx) != nil {
		if err := r.store.lock(ctx, r.store.ownerLocks, "owner:"+ownerID); err != nil {
			return false, err
		}
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.hasOpen(ownerID), nil
}

// ListByOwner returns the owner's requests, newest first
func (r *RequestRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Request, error) {
	list := r.store.filter(func(req *entity.Request) bool {
		return req.OwnerID == ownerID
	})
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// ListAwaitingDepartment returns open requests whose current stage belongs
// to dept, oldest first
func (r *RequestRepository) ListAwaitingDepartment(ctx context.Context, dept entity.Department, limit, offset int) ([]*entity.Request, error) {
	list := r.store.filter(func(req *entity.Request) bool {
		if !req.Status.IsOpen() {
			return false
		}
		current, ok := req.CurrentStage()
		return ok && current.Department == dept
	})
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return page(list, limit, offset), nil
}

// ListReviewedBy returns the stages actorID has decided, newest first
func (r *RequestRepository) ListReviewedBy(ctx context.Context, actorID string, limit, offset int) ([]*entity.ReviewRecord, error) {
	r.store.mu.RLock()
	var records []*entity.ReviewRecord
	for _, req := range r.store.requests {
		for _, s := range req.Stages {
			if s.ActedBy != actorID || !s.IsActioned() {
				continue
			}
			records = append(records, &entity.ReviewRecord{
				Stage:         *s.Clone(),
				ReferenceCode: req.ReferenceCode,
				OwnerID:       req.OwnerID,
				ApplicantName: req.Payload.FullName,
				RequestStatus: req.Status,
			})
		}
	}
	r.store.mu.RUnlock()

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].Stage.ActionTimestamp, records[j].Stage.ActionTimestamp
		if a.Equal(*b) {
			return records[i].Stage.ID < records[j].Stage.ID
		}
		return a.After(*b)
	})
	return page(records, limit, offset), nil
}

// CountByStatus returns request counts grouped by overall status
func (r *RequestRepository) CountByStatus(ctx context.Context) (map[entity.RequestStatus]int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	counts := make(map[entity.RequestStatus]int)
	for _, req := range r.store.requests {
		counts[req.Status]++
	}
	return counts, nil
}

func (s *Store) hasOpen(ownerID string) bool {
	for _, req := range s.requests {
		if req.OwnerID == ownerID && req.Status.IsOpen() {
			return true
		}
	}
	return false
}

func (s *Store) filter(keep func(*entity.Request) bool) []*entity.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []*entity.Request
	for _, req := range s.requests {
		if keep(req) {
			list = append(list, req.Clone())
		}
	}
	return list
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var _ port.RequestRepository = (*RequestRepository)(nil)
