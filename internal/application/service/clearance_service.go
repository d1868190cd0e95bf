package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/nodue-clearance/internal/application/dispatcher"
	"github.com/garyjia/nodue-clearance/internal/application/port"
	"github.com/garyjia/nodue-clearance/internal/domain/entity"
	"github.com/garyjia/nodue-clearance/internal/domain/event"
	"github.com/garyjia/nodue-clearance/internal/domain/workflow"
)

const (
	// maxReferenceAttempts bounds retries after a reference code collision
	maxReferenceAttempts = 3

	defaultDecideAttempts = 3
	defaultPageSize       = 20
	maxPageSize           = 100
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ClearanceService manages clearance requests and reviewer decisions
type ClearanceService interface {
	// CreateRequest submits a new request owned by actor
	CreateRequest(ctx context.Context, actor entity.Actor, payload entity.Payload) (*entity.Request, error)

	// Decide records actor's decision on one stage and returns the updated request
	Decide(ctx context.Context, actor entity.Actor, requestID, stageID string, decision workflow.Decision, remarks string) (*entity.Request, error)

	GetRequest(ctx context.Context, actor entity.Actor, requestID string) (*entity.Request, error)
	ListOwnRequests(ctx context.Context, actor entity.Actor) ([]*entity.Request, error)

	// PendingQueue lists open requests waiting on the actor's department
	PendingQueue(ctx context.Context, actor entity.Actor, limit, offset int) ([]*entity.Request, error)

	// ReviewHistory lists stages the actor has decided
	ReviewHistory(ctx context.Context, actor entity.Actor, limit, offset int) ([]*entity.ReviewRecord, error)

	RequestHistory(ctx context.Context, actor entity.Actor, requestID string) ([]*entity.RequestHistory, error)

	// Certificate renders the clearance certificate of a fully approved request
	Certificate(ctx context.Context, actor entity.Actor, requestID string) (*Certificate, error)
}

// Certificate is a rendered clearance certificate
type Certificate struct {
	FileName    string
	ContentType string
	Content     []byte
}

// Option configures the clearance service
type Option func(*clearanceServiceImpl)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *clearanceServiceImpl) {
		s.now = now
	}
}

// WithDecideMaxAttempts sets how many times a decision is retried after
// losing an optimistic version check
func WithDecideMaxAttempts(n int) Option {
	return func(s *clearanceServiceImpl) {
		if n > 0 {
			s.decideAttempts = n
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(metrics port.MetricsRecorder) Option {
	return func(s *clearanceServiceImpl) {
		s.metrics = metrics
	}
}

type clearanceServiceImpl struct {
	engine      *workflow.Engine
	requestRepo port.RequestRepository
	historyRepo port.HistoryRepository
	txManager   port.TransactionManager
	guard       *DuplicateGuard
	dispatcher  dispatcher.Dispatcher
	renderer    port.CertificateRenderer
	metrics     port.MetricsRecorder
	logger      Logger

	now            func() time.Time
	decideAttempts int
}

// NewClearanceService creates a new ClearanceService
func NewClearanceService(
	engine *workflow.Engine,
	requestRepo port.RequestRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	eventDispatcher dispatcher.Dispatcher,
	renderer port.CertificateRenderer,
	logger Logger,
	opts ...Option,
) ClearanceService {
	s := &clearanceServiceImpl{
		engine:         engine,
		requestRepo:    requestRepo,
		historyRepo:    historyRepo,
		txManager:      txManager,
		guard:          NewDuplicateGuard(requestRepo),
		dispatcher:     eventDispatcher,
		renderer:       renderer,
		metrics:        port.NopMetrics{},
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
		decideAttempts: defaultDecideAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest checks the duplicate guard and inserts the request with its
// stages and a CREATE history entry in one transaction
func (s *clearanceServiceImpl) CreateRequest(ctx context.Context, actor entity.Actor, payload entity.Payload) (*entity.Request, error) {
	now := s.now()

	var req *entity.Request
	for attempt := 1; ; attempt++ {
		req = s.engine.NewRequest(actor.ID, payload, now)

		err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			if err := s.guard.Check(txCtx, actor.ID); err != nil {
				return err
			}

			if err := s.requestRepo.Create(txCtx, req); err != nil {
				return fmt.Errorf("create request: %w", err)
			}

			history := &entity.RequestHistory{
				RequestID:  req.ID,
				ActorID:    actor.ID,
				ActorRole:  actor.Role,
				NewStatus:  req.Status,
				ActionType: entity.ActionCreate,
				Timestamp:  now,
			}
			if err := s.historyRepo.Create(txCtx, history); err != nil {
				return fmt.Errorf("create history: %w", err)
			}
			return nil
		})

		if err == nil {
			break
		}
		if errors.Is(err, port.ErrDuplicateReference) && attempt < maxReferenceAttempts {
			s.logger.Info("Reference code collision, retrying", "reference_code", req.ReferenceCode, "attempt", attempt)
			continue
		}
		if errors.Is(err, port.ErrOpenRequestExists) {
			err = fmt.Errorf("%w: owner %s", workflow.ErrDuplicateOpenRequest, actor.ID)
		}

		s.logger.Error("Failed to create request", "error", err, "owner_id", actor.ID)
		return nil, err
	}

	s.metrics.RequestCreated()
	s.logger.Info("Request created",
		"request_id", req.ID,
		"reference_code", req.ReferenceCode,
		"owner_id", req.OwnerID,
		"stages", len(req.Stages),
	)

	first, _ := req.CurrentStage()
	payloadData := map[string]interface{}{
		event.KeyReferenceCode: req.ReferenceCode,
		event.KeyOwnerID:       req.OwnerID,
		event.KeyApplicantName: req.Payload.FullName,
	}
	if first != nil {
		payloadData[event.KeyDepartment] = first.Department.String()
	}
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeRequestCreated, req.ID, payloadData))

	return req, nil
}

// Decide loads the request under lock, applies the decision through the
// engine and persists the stage, the request and a history entry together.
// A lost version check is retried against fresh state.
func (s *clearanceServiceImpl) Decide(ctx context.Context, actor entity.Actor, requestID, stageID string, decision workflow.Decision, remarks string) (*entity.Request, error) {
	var (
		req     *entity.Request
		outcome *workflow.Outcome
	)

	for attempt := 1; ; attempt++ {
		err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			current, err := s.requestRepo.GetForUpdate(txCtx, requestID)
			if err != nil {
				return fmt.Errorf("load request: %w", err)
			}
			if current == nil {
				return fmt.Errorf("%w: %s", workflow.ErrRequestNotFound, requestID)
			}

			at := s.now()
			result, err := s.engine.Decide(txCtx, current, workflow.DecideInput{
				StageID:  stageID,
				Actor:    actor,
				Decision: decision,
				Remarks:  remarks,
				At:       at,
			})
			if err != nil {
				return err
			}

			if err := s.requestRepo.SaveDecision(txCtx, current, result.Stage); err != nil {
				return fmt.Errorf("save decision: %w", err)
			}

			history := &entity.RequestHistory{
				RequestID:      current.ID,
				StageID:        result.Stage.ID,
				ActorID:        actor.ID,
				ActorRole:      actor.Role,
				PreviousStatus: result.PreviousStatus,
				NewStatus:      result.NewStatus,
				ActionType:     actionType(decision),
				Remarks:        result.Stage.Remarks,
				Timestamp:      at,
			}
			if err := s.historyRepo.Create(txCtx, history); err != nil {
				return fmt.Errorf("create history: %w", err)
			}

			req, outcome = current, result
			return nil
		})

		if err == nil {
			break
		}
		if errors.Is(err, port.ErrConcurrentUpdate) && attempt < s.decideAttempts {
			s.logger.Info("Concurrent update on request, retrying", "request_id", requestID, "attempt", attempt)
			continue
		}

		kind := workflow.KindOf(err)
		s.metrics.DecisionFailed(string(kind))
		if kind == workflow.KindInternal {
			s.logger.Error("Failed to record decision", "error", err, "request_id", requestID, "stage_id", stageID)
		} else {
			s.logger.Info("Decision rejected", "reason", err.Error(), "kind", kind, "request_id", requestID, "actor_id", actor.ID)
		}
		return nil, err
	}

	s.metrics.DecisionRecorded(outcome.Stage.Department, decision.String())
	s.logger.Info("Decision recorded",
		"request_id", req.ID,
		"stage_id", outcome.Stage.ID,
		"department", outcome.Stage.Department,
		"decision", decision,
		"previous_status", outcome.PreviousStatus,
		"new_status", outcome.NewStatus,
	)

	s.publishDecision(ctx, actor, req, outcome)
	return req, nil
}

// publishDecision emits the stage event and, when the request closed, the
// terminal event in the same correlation chain
func (s *clearanceServiceImpl) publishDecision(ctx context.Context, actor entity.Actor, req *entity.Request, outcome *workflow.Outcome) {
	payload := map[string]interface{}{
		event.KeyReferenceCode:  req.ReferenceCode,
		event.KeyOwnerID:        req.OwnerID,
		event.KeyApplicantName:  req.Payload.FullName,
		event.KeyStageID:        outcome.Stage.ID,
		event.KeyDepartment:     outcome.Stage.Department.String(),
		event.KeyActorID:        actor.ID,
		event.KeyRemarks:        outcome.Stage.Remarks,
		event.KeyPreviousStatus: outcome.PreviousStatus.String(),
		event.KeyNewStatus:      outcome.NewStatus.String(),
		event.KeyCompletion:     req.CompletionPercentage(),
	}
	if outcome.NextStage != nil {
		payload[event.KeyNextDepartment] = outcome.NextStage.Department.String()
	}

	stageType := event.TypeStageApproved
	if outcome.Stage.Status == entity.StageStatusRejected {
		stageType = event.TypeStageRejected
	}
	stageEvt := event.NewEvent(stageType, req.ID, payload)
	s.dispatcher.DispatchAsync(ctx, stageEvt)

	var terminal event.Type
	switch outcome.NewStatus {
	case entity.RequestStatusFullyApproved:
		terminal = event.TypeRequestFullyApproved
	case entity.RequestStatusRejected:
		terminal = event.TypeRequestRejected
	default:
		return
	}
	s.dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(terminal, req.ID, payload, stageEvt.CorrelationID))
}

// GetRequest returns the request when the actor may read it
func (s *clearanceServiceImpl) GetRequest(ctx context.Context, actor entity.Actor, requestID string) (*entity.Request, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		s.logger.Error("Failed to get request", "error", err, "request_id", requestID)
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: %s", workflow.ErrRequestNotFound, requestID)
	}
	if !s.canRead(actor, req) {
		return nil, fmt.Errorf("%w: request %s", workflow.ErrForbidden, requestID)
	}
	return req, nil
}

// canRead allows the owner, any department reviewer and the super admin
func (s *clearanceServiceImpl) canRead(actor entity.Actor, req *entity.Request) bool {
	return actor.ID == req.OwnerID ||
		actor.Role == entity.RoleSuperAdmin ||
		s.engine.Policy().IsReviewer(actor.Role)
}

// ListOwnRequests returns the actor's requests, newest first
func (s *clearanceServiceImpl) ListOwnRequests(ctx context.Context, actor entity.Actor) ([]*entity.Request, error) {
	requests, err := s.requestRepo.ListByOwner(ctx, actor.ID)
	if err != nil {
		s.logger.Error("Failed to list requests", "error", err, "owner_id", actor.ID)
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// PendingQueue lists open requests whose current stage belongs to the
// actor's department, oldest first
func (s *clearanceServiceImpl) PendingQueue(ctx context.Context, actor entity.Actor, limit, offset int) ([]*entity.Request, error) {
	dept := s.engine.Policy().DepartmentFor(actor.Role)
	if dept == entity.DepartmentNone {
		return nil, fmt.Errorf("%w: role %s has no department", workflow.ErrForbidden, actor.Role)
	}

	limit, offset = normalizePage(limit, offset)
	requests, err := s.requestRepo.ListAwaitingDepartment(ctx, dept, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list queue", "error", err, "department", dept)
		return nil, fmt.Errorf("list queue: %w", err)
	}
	return requests, nil
}

// ReviewHistory lists stages decided by the actor, newest first
func (s *clearanceServiceImpl) ReviewHistory(ctx context.Context, actor entity.Actor, limit, offset int) ([]*entity.ReviewRecord, error) {
	if !s.engine.Policy().IsReviewer(actor.Role) {
		return nil, fmt.Errorf("%w: role %s does not review", workflow.ErrForbidden, actor.Role)
	}

	limit, offset = normalizePage(limit, offset)
	records, err := s.requestRepo.ListReviewedBy(ctx, actor.ID, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list reviews", "error", err, "actor_id", actor.ID)
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return records, nil
}

// RequestHistory returns the audit trail of a request the actor may read
func (s *clearanceServiceImpl) RequestHistory(ctx context.Context, actor entity.Actor, requestID string) ([]*entity.RequestHistory, error) {
	if _, err := s.GetRequest(ctx, actor, requestID); err != nil {
		return nil, err
	}

	records, err := s.historyRepo.GetByRequestID(ctx, requestID)
	if err != nil {
		s.logger.Error("Failed to get history", "error", err, "request_id", requestID)
		return nil, fmt.Errorf("get history: %w", err)
	}
	return records, nil
}

// Certificate renders the certificate of a fully approved request
func (s *clearanceServiceImpl) Certificate(ctx context.Context, actor entity.Actor, requestID string) (*Certificate, error) {
	req, err := s.GetRequest(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != entity.RequestStatusFullyApproved {
		return nil, fmt.Errorf("%w: request %s is %s", workflow.ErrCertificateNotIssued, requestID, req.Status)
	}

	content, err := s.renderer.Render(req, s.now())
	if err != nil {
		s.logger.Error("Failed to render certificate", "error", err, "request_id", requestID)
		return nil, fmt.Errorf("render certificate: %w", err)
	}

	return &Certificate{
		FileName:    "clearance-" + strings.TrimPrefix(req.ReferenceCode, "#") + s.renderer.FileExtension(),
		ContentType: s.renderer.ContentType(),
		Content:     content,
	}, nil
}

func actionType(decision workflow.Decision) string {
	if decision == workflow.DecisionReject {
		return entity.ActionReject
	}
	return entity.ActionApprove
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
