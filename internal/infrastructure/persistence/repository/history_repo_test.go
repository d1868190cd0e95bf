package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

func TestHistoryRepository_CreateAndList(t *testing.T) {
	db := setupTestDB(t)
	requests := NewRequestRepository(db, zap.NewNop())
	history := NewHistoryRepository(db, zap.NewNop())
	engine := newTestEngine(t)
	ctx := context.Background()

	req := createRequest(t, requests, engine, "student-1", false, baseTime)

	created := &entity.RequestHistory{
		RequestID:  req.ID,
		ActorID:    "student-1",
		ActorRole:  entity.RoleStudent,
		NewStatus:  entity.RequestStatusSubmitted,
		ActionType: entity.ActionCreate,
		Timestamp:  baseTime,
	}
	require.NoError(t, history.Create(ctx, created))
	assert.NotZero(t, created.ID)

	approved := &entity.RequestHistory{
		RequestID:      req.ID,
		StageID:        req.Stages[0].ID,
		ActorID:        "f-1",
		ActorRole:      entity.RoleFaculty,
		PreviousStatus: entity.RequestStatusSubmitted,
		NewStatus:      entity.RequestStatusInProgress,
		ActionType:     entity.ActionApprove,
		Remarks:        "ok",
		Timestamp:      baseTime.Add(time.Hour),
	}
	require.NoError(t, history.Create(ctx, approved))
	assert.Greater(t, approved.ID, created.ID)

	records, err := history.GetByRequestID(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, entity.ActionCreate, records[0].ActionType)
	assert.Empty(t, records[0].PreviousStatus)
	assert.Empty(t, records[0].StageID)

	assert.Equal(t, entity.ActionApprove, records[1].ActionType)
	assert.Equal(t, req.Stages[0].ID, records[1].StageID)
	assert.Equal(t, entity.RoleFaculty, records[1].ActorRole)
	assert.Equal(t, entity.RequestStatusSubmitted, records[1].PreviousStatus)
	assert.Equal(t, "ok", records[1].Remarks)
	assert.True(t, records[1].Timestamp.Equal(baseTime.Add(time.Hour)))
}

func TestHistoryRepository_RollsBackWithTransaction(t *testing.T) {
	db := setupTestDB(t)
	requests := NewRequestRepository(db, zap.NewNop())
	history := NewHistoryRepository(db, zap.NewNop())
	engine := newTestEngine(t)
	ctx := context.Background()

	req := createRequest(t, requests, engine, "student-1", false, baseTime)

	err := db.WithTransaction(ctx, func(ctx context.Context) error {
		if err := history.Create(ctx, &entity.RequestHistory{
			RequestID:  req.ID,
			ActorID:    "student-1",
			ActorRole:  entity.RoleStudent,
			NewStatus:  entity.RequestStatusSubmitted,
			ActionType: entity.ActionCreate,
			Timestamp:  baseTime,
		}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	records, err := history.GetByRequestID(ctx, req.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}
