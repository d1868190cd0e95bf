package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/nodue-clearance/internal/application/port"
	"github.com/garyjia/nodue-clearance/internal/domain/entity"
	"github.com/garyjia/nodue-clearance/internal/infrastructure/persistence/sqldb"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sqldb.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.RequestHistory) error {
	query := `
		INSERT INTO request_history (
			request_id, stage_id, actor_id, actor_role, previous_status,
			new_status, action_type, remarks, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	err := r.db.Executor(ctx).QueryRowContext(ctx, r.db.Dialect().Rebind(query),
		history.RequestID,
		history.StageID,
		history.ActorID,
		history.ActorRole,
		history.PreviousStatus,
		history.NewStatus,
		history.ActionType,
		history.Remarks,
		history.Timestamp,
	).Scan(&history.ID)
	if err != nil {
		r.logger.Error("Failed to create history record",
			zap.String("request_id", history.RequestID),
			zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	return nil
}

// GetByRequestID retrieves the trail for a request in insertion order
func (r *HistoryRepository) GetByRequestID(ctx context.Context, requestID string) ([]*entity.RequestHistory, error) {
	query := `
		SELECT id, request_id, stage_id, actor_id, actor_role, previous_status,
			new_status, action_type, remarks, timestamp
		FROM request_history
		WHERE request_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, r.db.Dialect().Rebind(query), requestID)
	if err != nil {
		r.logger.Error("Failed to get history by request ID", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.RequestHistory
	for rows.Next() {
		var record entity.RequestHistory
		err := rows.Scan(
			&record.ID,
			&record.RequestID,
			&record.StageID,
			&record.ActorID,
			&record.ActorRole,
			&record.PreviousStatus,
			&record.NewStatus,
			&record.ActionType,
			&record.Remarks,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
