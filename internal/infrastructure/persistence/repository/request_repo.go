package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/nodue-clearance/internal/application/port"
	"github.com/garyjia/nodue-clearance/internal/domain/entity"
	"github.com/garyjia/nodue-clearance/internal/infrastructure/persistence/sqldb"
)

const (
	requestColumns = `r.id, r.reference_code, r.owner_id, r.payload, r.current_stage_position,
		r.status, r.version, r.created_at, r.updated_at`

	stageColumns = `s.id, s.request_id, s.position, s.sequence_number, s.department,
		s.status, s.remarks, s.acted_by, s.action_timestamp`

	openStatusFilter = `('SUBMITTED', 'IN_PROGRESS')`
)

// RequestRepository implements port.RequestRepository for SQLite and PostgreSQL
type RequestRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sqldb.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the request row followed by its stages
func (r *RequestRepository) Create(ctx context.Context, req *entity.Request) error {
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	query := `
		INSERT INTO requests (
			id, reference_code, owner_id, payload, has_optional_stage,
			current_stage_position, status, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	exec := r.db.Executor(ctx)
	_, err = exec.ExecContext(ctx, r.rebind(query),
		req.ID,
		req.ReferenceCode,
		req.OwnerID,
		string(payload),
		req.Payload.HasOptionalStage,
		req.CurrentStagePosition,
		req.Status,
		req.Version,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		if mapped := classifyInsertError(err); mapped != nil {
			return mapped
		}
		r.logger.Error("Failed to create request", zap.String("request_id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	stageQuery := r.rebind(`
		INSERT INTO stages (
			id, request_id, position, sequence_number, department,
			status, remarks, acted_by, action_timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	for _, s := range req.Stages {
		_, err := exec.ExecContext(ctx, stageQuery,
			s.ID,
			req.ID,
			s.Position,
			s.SequenceNumber,
			s.Department,
			s.Status,
			s.Remarks,
			nullString(s.ActedBy),
			s.ActionTimestamp,
		)
		if err != nil {
			r.logger.Error("Failed to create stage",
				zap.String("request_id", req.ID),
				zap.Int("position", s.Position),
				zap.Error(err))
			return fmt.Errorf("failed to create stage %d: %w", s.Position, err)
		}
	}

	return nil
}

// GetByID retrieves a request aggregate by ID
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*entity.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests r WHERE r.id = ?`
	return r.getOne(ctx, r.rebind(query), id)
}

// GetForUpdate retrieves a request aggregate and locks it for the rest of the transaction
func (r *RequestRepository) GetForUpdate(ctx context.Context, id string) (*entity.Request, error) {
	if !sqldb.InTransaction(ctx) {
		return nil, fmt.Errorf("GetForUpdate requires a transaction")
	}

	query := r.db.Dialect().ForUpdate(`SELECT ` + requestColumns + ` FROM requests r WHERE r.id = ?`)
	return r.getOne(ctx, r.rebind(query), id)
}

func (r *RequestRepository) getOne(ctx context.Context, query string, id string) (*entity.Request, error) {
	req, err := scanRequest(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request", zap.String("request_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	if err := r.attachStages(ctx, []*entity.Request{req}); err != nil {
		return nil, err
	}
	return req, nil
}

// SaveDecision persists one decided stage and the request's new position and status
func (r *RequestRepository) SaveDecision(ctx context.Context, req *entity.Request, stage *entity.Stage) error {
	exec := r.db.Executor(ctx)

	stageQuery := `
		UPDATE stages
		SET status = ?, remarks = ?, acted_by = ?, action_timestamp = ?
		WHERE id = ? AND request_id = ? AND status = 'UNDER_REVIEW'
	`
	result, err := exec.ExecContext(ctx, r.rebind(stageQuery),
		stage.Status,
		stage.Remarks,
		nullString(stage.ActedBy),
		stage.ActionTimestamp,
		stage.ID,
		req.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update stage", zap.String("stage_id", stage.ID), zap.Error(err))
		return fmt.Errorf("failed to update stage: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}

	requestQuery := `
		UPDATE requests
		SET status = ?, current_stage_position = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`
	result, err = exec.ExecContext(ctx, r.rebind(requestQuery),
		req.Status,
		req.CurrentStagePosition,
		req.UpdatedAt,
		req.ID,
		req.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update request", zap.String("request_id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update request: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}

	req.Version++
	return nil
}

// HasOpenRequest checks for a SUBMITTED or IN_PROGRESS request owned by ownerID
func (r *RequestRepository) HasOpenRequest(ctx context.Context, ownerID string) (bool, error) {
	exec := r.db.Executor(ctx)

	if lock := r.db.Dialect().OwnerLockQuery(); lock != "" && sqldb.InTransaction(ctx) {
		if _, err := exec.ExecContext(ctx, r.rebind(lock), ownerID); err != nil {
			return false, fmt.Errorf("failed to lock owner: %w", err)
		}
	}

	query := `SELECT COUNT(1) FROM requests WHERE owner_id = ? AND status IN ` + openStatusFilter
	var count int
	if err := exec.QueryRowContext(ctx, r.rebind(query), ownerID).Scan(&count); err != nil {
		r.logger.Error("Failed to check open requests", zap.String("owner_id", ownerID), zap.Error(err))
		return false, fmt.Errorf("failed to check open requests: %w", err)
	}
	return count > 0, nil
}

// ListByOwner returns the owner's requests, newest first
func (r *RequestRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Request, error) {
	query := `SELECT ` + requestColumns + `
		FROM requests r
		WHERE r.owner_id = ?
		ORDER BY r.created_at DESC, r.id DESC`
	return r.list(ctx, r.rebind(query), ownerID)
}

// ListAwaitingDepartment returns open requests whose current stage belongs to dept
func (r *RequestRepository) ListAwaitingDepartment(ctx context.Context, dept entity.Department, limit, offset int) ([]*entity.Request, error) {
	query := `SELECT ` + requestColumns + `
		FROM requests r
		JOIN stages s ON s.request_id = r.id AND s.position = r.current_stage_position
		WHERE r.status IN ` + openStatusFilter + ` AND s.department = ?
		ORDER BY r.created_at ASC, r.id ASC
		LIMIT ? OFFSET ?`
	return r.list(ctx, r.rebind(query), dept, limit, offset)
}

func (r *RequestRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Request, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate requests: %w", err)
	}
	rows.Close()

	if err := r.attachStages(ctx, requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// ListReviewedBy returns the stages actorID has decided, newest first
func (r *RequestRepository) ListReviewedBy(ctx context.Context, actorID string, limit, offset int) ([]*entity.ReviewRecord, error) {
	query := `SELECT ` + stageColumns + `, r.reference_code, r.owner_id, r.payload, r.status
		FROM stages s
		JOIN requests r ON r.id = s.request_id
		WHERE s.acted_by = ?
		ORDER BY s.action_timestamp DESC, s.id ASC
		LIMIT ? OFFSET ?`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, r.rebind(query), actorID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list reviewed stages", zap.String("actor_id", actorID), zap.Error(err))
		return nil, fmt.Errorf("failed to list reviewed stages: %w", err)
	}
	defer rows.Close()

	var records []*entity.ReviewRecord
	for rows.Next() {
		var (
			record  entity.ReviewRecord
			row     stageRow
			payload string
		)
		dest := append(row.targets(), &record.ReferenceCode, &record.OwnerID, &payload, &record.RequestStatus)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan reviewed stage: %w", err)
		}
		record.Stage = *row.toEntity()

		var p entity.Payload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("failed to decode payload: %w", err)
		}
		record.ApplicantName = p.FullName
		records = append(records, &record)
	}

	return records, rows.Err()
}

// CountByStatus returns request counts grouped by overall status
func (r *RequestRepository) CountByStatus(ctx context.Context) (map[entity.RequestStatus]int, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `SELECT status, COUNT(1) FROM requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}
	defer rows.Close()

	counts := make(map[entity.RequestStatus]int)
	for rows.Next() {
		var (
			status entity.RequestStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// attachStages loads the stages of every request in one query
func (r *RequestRepository) attachStages(ctx context.Context, requests []*entity.Request) error {
	if len(requests) == 0 {
		return nil
	}

	byID := make(map[string]*entity.Request, len(requests))
	args := make([]interface{}, 0, len(requests))
	for _, req := range requests {
		byID[req.ID] = req
		req.Stages = nil
		args = append(args, req.ID)
	}

	query := `SELECT ` + stageColumns + `
		FROM stages s
		WHERE s.request_id IN (` + placeholders(len(args)) + `)
		ORDER BY s.request_id, s.position`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		r.logger.Error("Failed to load stages", zap.Int("request_count", len(requests)), zap.Error(err))
		return fmt.Errorf("failed to load stages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row stageRow
		if err := rows.Scan(row.targets()...); err != nil {
			return fmt.Errorf("failed to scan stage: %w", err)
		}
		s := row.toEntity()
		if req, ok := byID[s.RequestID]; ok {
			req.Stages = append(req.Stages, s)
		}
	}
	return rows.Err()
}

func (r *RequestRepository) rebind(query string) string {
	return r.db.Dialect().Rebind(query)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*entity.Request, error) {
	var (
		req     entity.Request
		payload string
	)
	err := row.Scan(
		&req.ID,
		&req.ReferenceCode,
		&req.OwnerID,
		&payload,
		&req.CurrentStagePosition,
		&req.Status,
		&req.Version,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &req.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return &req, nil
}

// stageRow holds a scanned stage together with its nullable columns
type stageRow struct {
	stage   entity.Stage
	actedBy sql.NullString
	actedAt sql.NullTime
}

func (r *stageRow) targets() []interface{} {
	s := &r.stage
	return []interface{}{
		&s.ID,
		&s.RequestID,
		&s.Position,
		&s.SequenceNumber,
		&s.Department,
		&s.Status,
		&s.Remarks,
		&r.actedBy,
		&r.actedAt,
	}
}

func (r *stageRow) toEntity() *entity.Stage {
	s := r.stage
	s.ActedBy = r.actedBy.String
	if r.actedAt.Valid {
		ts := r.actedAt.Time
		s.ActionTimestamp = &ts
	}
	return &s
}

func classifyInsertError(err error) error {
	detail, ok := sqldb.UniqueViolation(err)
	if !ok {
		return nil
	}
	switch {
	case strings.Contains(detail, "reference_code"):
		return fmt.Errorf("%w: %v", port.ErrDuplicateReference, err)
	case strings.Contains(detail, "owner"):
		return fmt.Errorf("%w: %v", port.ErrOpenRequestExists, err)
	default:
		return nil
	}
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n != 1 {
		return port.ErrConcurrentUpdate
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

var _ port.RequestRepository = (*RequestRepository)(nil)
