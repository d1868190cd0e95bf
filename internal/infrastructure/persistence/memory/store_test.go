package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/nodue-clearance/internal/application/port"
	"github.com/garyjia/nodue-clearance/internal/domain/entity"
	"github.com/garyjia/nodue-clearance/internal/domain/workflow"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Store, port.RequestRepository, port.HistoryRepository, *workflow.Engine) {
	t.Helper()
	engine, err := workflow.NewEngine(workflow.DefaultTemplate(), workflow.DefaultPolicy())
	require.NoError(t, err)
	store := NewStore(zap.NewNop())
	return store, NewRequestRepository(store), NewHistoryRepository(store), engine
}

func newRequest(engine *workflow.Engine, owner string, at time.Time) *entity.Request {
	return engine.NewRequest(owner, entity.Payload{FullName: "Student " + owner}, at)
}

func decide(store *Store, repo port.RequestRepository, engine *workflow.Engine, requestID string, position int, role entity.Role, decision workflow.Decision) error {
	return store.WithTransaction(context.Background(), func(ctx context.Context) error {
		req, err := repo.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return workflow.ErrRequestNotFound
		}
		outcome, err := engine.Decide(ctx, req, workflow.DecideInput{
			StageID:  req.Stages[position].ID,
			Actor:    entity.Actor{ID: "reviewer-1", Role: role},
			Decision: decision,
			Remarks:  "checked",
			At:       baseTime.Add(time.Hour),
		})
		if err != nil {
			return err
		}
		return repo.SaveDecision(ctx, req, outcome.Stage)
	})
}

func TestKeyedLocks_IndependentKeys(t *testing.T) {
	locks := newKeyedLocks()
	ctx := context.Background()

	unlockA, err := locks.Lock(ctx, "a")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		unlockB, err := locks.Lock(ctx, "b")
		if err == nil {
			unlockB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked while a was held")
	}

	unlockA()
	assert.Equal(t, 0, locks.size())
}

func TestKeyedLocks_SameKeyWaits(t *testing.T) {
	locks := newKeyedLocks()

	unlock, err := locks.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = locks.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op
	assert.Equal(t, 0, locks.size())

	again, err := locks.Lock(context.Background(), "a")
	require.NoError(t, err)
	again()
}

func TestStore_TransactionBuffersUntilCommit(t *testing.T) {
	store, repo, history, engine := setup(t)
	req := newRequest(engine, "student-1", baseTime)

	err := store.WithTransaction(context.Background(), func(ctx context.Context) error {
		if err := repo.Create(ctx, req); err != nil {
			return err
		}
		if err := history.Create(ctx, &entity.RequestHistory{RequestID: req.ID, ActionType: entity.ActionCreate}); err != nil {
			return err
		}

		// not visible before commit
		got, err := repo.GetByID(context.Background(), req.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
		return nil
	})
	require.NoError(t, err)

	got, err := repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	records, err := history.GetByRequestID(context.Background(), req.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].ID)
}

func TestStore_TransactionRollback(t *testing.T) {
	store, repo, history, engine := setup(t)
	req := newRequest(engine, "student-1", baseTime)

	err := store.WithTransaction(context.Background(), func(ctx context.Context) error {
		require.NoError(t, repo.Create(ctx, req))
		require.NoError(t, history.Create(ctx, &entity.RequestHistory{RequestID: req.ID}))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	got, err := repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	records, err := history.GetByRequestID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 0, store.requestLocks.size()+store.ownerLocks.size())
}

func TestStore_ReturnsCopies(t *testing.T) {
	_, repo, _, engine := setup(t)
	req := newRequest(engine, "student-1", baseTime)
	require.NoError(t, repo.Create(context.Background(), req))

	req.Stages[0].Status = entity.StageStatusApproved

	got, err := repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	got.Stages[1].Status = entity.StageStatusRejected

	again, err := repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StageStatusUnderReview, again.Stages[0].Status)
	assert.Equal(t, entity.StageStatusUnderReview, again.Stages[1].Status)
}

func TestRequestRepository_CreateConstraints(t *testing.T) {
	_, repo, _, engine := setup(t)
	ctx := context.Background()

	first := newRequest(engine, "student-1", baseTime)
	require.NoError(t, repo.Create(ctx, first))

	sameOwner := newRequest(engine, "student-1", baseTime)
	assert.ErrorIs(t, repo.Create(ctx, sameOwner), port.ErrOpenRequestExists)

	sameRef := newRequest(engine, "student-2", baseTime)
	sameRef.ReferenceCode = first.ReferenceCode
	assert.ErrorIs(t, repo.Create(ctx, sameRef), port.ErrDuplicateReference)
}

func TestRequestRepository_GetForUpdateRequiresTransaction(t *testing.T) {
	_, repo, _, _ := setup(t)
	_, err := repo.GetForUpdate(context.Background(), "any")
	assert.Error(t, err)
}

func TestRequestRepository_SaveDecisionVersionCheck(t *testing.T) {
	_, repo, _, engine := setup(t)
	ctx := context.Background()

	req := newRequest(engine, "student-1", baseTime)
	require.NoError(t, repo.Create(ctx, req))

	a, _ := repo.GetByID(ctx, req.ID)
	b, _ := repo.GetByID(ctx, req.ID)
	in := workflow.DecideInput{
		StageID:  req.Stages[0].ID,
		Actor:    entity.Actor{ID: "f-1", Role: entity.RoleFaculty},
		Decision: workflow.DecisionApprove,
		Remarks:  "ok",
		At:       baseTime,
	}
	outA, err := engine.Decide(ctx, a, in)
	require.NoError(t, err)
	outB, err := engine.Decide(ctx, b, in)
	require.NoError(t, err)

	require.NoError(t, repo.SaveDecision(ctx, a, outA.Stage))
	assert.Equal(t, int64(2), a.Version)
	assert.ErrorIs(t, repo.SaveDecision(ctx, b, outB.Stage), port.ErrConcurrentUpdate)

	got, _ := repo.GetByID(ctx, req.ID)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, entity.RequestStatusInProgress, got.Status)
	assert.Equal(t, 1, got.CurrentStagePosition)
}

func TestRequestRepository_Queries(t *testing.T) {
	store, repo, _, engine := setup(t)
	ctx := context.Background()

	first := newRequest(engine, "student-1", baseTime)
	second := newRequest(engine, "student-2", baseTime.Add(time.Minute))
	third := newRequest(engine, "student-3", baseTime.Add(2*time.Minute))
	for _, req := range []*entity.Request{first, second, third} {
		require.NoError(t, repo.Create(ctx, req))
	}

	require.NoError(t, decide(store, repo, engine, first.ID, 0, entity.RoleFaculty, workflow.DecisionApprove))
	require.NoError(t, decide(store, repo, engine, third.ID, 0, entity.RoleFaculty, workflow.DecisionReject))

	faculty, err := repo.ListAwaitingDepartment(ctx, entity.DepartmentFaculty, 10, 0)
	require.NoError(t, err)
	require.Len(t, faculty, 1)
	assert.Equal(t, second.ID, faculty[0].ID)

	coordinator, err := repo.ListAwaitingDepartment(ctx, entity.DepartmentClassCoordinator, 10, 0)
	require.NoError(t, err)
	require.Len(t, coordinator, 1)
	assert.Equal(t, first.ID, coordinator[0].ID)

	empty, err := repo.ListAwaitingDepartment(ctx, entity.DepartmentFaculty, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)

	reviewed, err := repo.ListReviewedBy(ctx, "reviewer-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, reviewed, 2)
	names := []string{reviewed[0].ApplicantName, reviewed[1].ApplicantName}
	assert.ElementsMatch(t, []string{"Student student-1", "Student student-3"}, names)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[entity.RequestStatusSubmitted])
	assert.Equal(t, 1, counts[entity.RequestStatusInProgress])
	assert.Equal(t, 1, counts[entity.RequestStatusRejected])

	open, err := repo.HasOpenRequest(ctx, "student-3")
	require.NoError(t, err)
	assert.False(t, open)

	mine, err := repo.ListByOwner(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)
}

func TestRequestRepository_ConcurrentDecisionsOnOneStage(t *testing.T) {
	store, repo, _, engine := setup(t)
	req := newRequest(engine, "student-1", baseTime)
	require.NoError(t, repo.Create(context.Background(), req))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = decide(store, repo, engine, req.ID, 0, entity.RoleFaculty, workflow.DecisionApprove)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, workflow.ErrNotCurrentStage), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	got, _ := repo.GetByID(context.Background(), req.ID)
	assert.Equal(t, int64(2), got.Version)
}

func TestRequestRepository_DecisionsOnDifferentRequestsDoNotBlock(t *testing.T) {
	store, repo, _, engine := setup(t)
	a := newRequest(engine, "student-1", baseTime)
	b := newRequest(engine, "student-2", baseTime)
	require.NoError(t, repo.Create(context.Background(), a))
	require.NoError(t, repo.Create(context.Background(), b))

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = store.WithTransaction(context.Background(), func(ctx context.Context) error {
			if _, err := repo.GetForUpdate(ctx, a.ID); err != nil {
				return err
			}
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	done := make(chan error, 1)
	go func() {
		done <- decide(store, repo, engine, b.ID, 0, entity.RoleFaculty, workflow.DecisionApprove)
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("decision on b waited for the lock on a")
	}
	close(release)
}
