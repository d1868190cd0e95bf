package port

import (
	"context"
	"errors"

	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

var (
	// ErrConcurrentUpdate is returned when a conditional write finds the row
	// changed since it was read
	ErrConcurrentUpdate = errors.New("request was modified concurrently")

	// ErrDuplicateReference is returned when a reference code is already taken
	ErrDuplicateReference = errors.New("reference code already exists")

	// ErrOpenRequestExists is returned when storage rejects a second open
	// request for the same owner
	ErrOpenRequestExists = errors.New("owner already has an open request")
)

// RequestRepository persists request aggregates. Lookups return nil, nil
// when nothing matches.
type RequestRepository interface {
	// Create inserts the request and all of its stages
	Create(ctx context.Context, req *entity.Request) error

	// GetByID loads the aggregate without locking
	GetByID(ctx context.Context, id string) (*entity.Request, error)

	// GetForUpdate loads the aggregate and holds its lock until the
	// surrounding transaction ends. Must be called inside a transaction.
	GetForUpdate(ctx context.Context, id string) (*entity.Request, error)

	// SaveDecision writes the decided stage and the request's new status and
	// position. The stage must still be under review and the request version
	// must match, otherwise ErrConcurrentUpdate is returned.
	SaveDecision(ctx context.Context, req *entity.Request, stage *entity.Stage) error

	// HasOpenRequest reports whether owner has a SUBMITTED or IN_PROGRESS
	// request. Inside a transaction it also serializes concurrent creators
	// for the same owner where the backend supports it.
	HasOpenRequest(ctx context.Context, ownerID string) (bool, error)

	// ListByOwner returns the owner's requests, newest first
	ListByOwner(ctx context.Context, ownerID string) ([]*entity.Request, error)

	// ListAwaitingDepartment returns open requests whose current stage
	// belongs to dept, oldest first
	ListAwaitingDepartment(ctx context.Context, dept entity.Department, limit, offset int) ([]*entity.Request, error)

	// ListReviewedBy returns stages decided by actorID, newest first
	ListReviewedBy(ctx context.Context, actorID string, limit, offset int) ([]*entity.ReviewRecord, error)

	// CountByStatus returns the number of requests per overall status
	CountByStatus(ctx context.Context) (map[entity.RequestStatus]int, error)
}

// HistoryRepository persists the append-only audit trail
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.RequestHistory) error
	GetByRequestID(ctx context.Context, requestID string) ([]*entity.RequestHistory, error)
}

// TransactionManager handles transactions. Nested calls join the outer one.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
