package service

import (
	"context"
	"fmt"

	"github.com/garyjia/nodue-clearance/internal/application/port"
	"github.com/garyjia/nodue-clearance/internal/domain/workflow"
)

// DuplicateGuard enforces at most one open request per owner. Check must run
// inside the creation transaction so the answer holds until commit.
type DuplicateGuard struct {
	requests port.RequestRepository
}

// NewDuplicateGuard creates a guard over the request repository
func NewDuplicateGuard(requests port.RequestRepository) *DuplicateGuard {
	return &DuplicateGuard{requests: requests}
}

// Check returns ErrDuplicateOpenRequest when owner already has a SUBMITTED
// or IN_PROGRESS request
func (g *DuplicateGuard) Check(ctx context.Context, ownerID string) error {
	open, err := g.requests.HasOpenRequest(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("check open requests: %w", err)
	}
	if open {
		return fmt.Errorf("%w: owner %s", workflow.ErrDuplicateOpenRequest, ownerID)
	}
	return nil
}
