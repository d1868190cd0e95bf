package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

// DecideInput carries one reviewer decision
type DecideInput struct {
	StageID  string
	Actor    entity.Actor
	Decision Decision
	Remarks  string
	At       time.Time
}

// Outcome describes the effect of an accepted decision
type Outcome struct {
	Stage            *entity.Stage
	PreviousStatus   entity.RequestStatus
	NewStatus        entity.RequestStatus
	PreviousPosition int
	// NextStage is the stage that became actionable, nil when the request closed
	NextStage *entity.Stage
}

// Engine applies the stage template, the authorization policy and the
// request lifecycle to request aggregates. It holds no per-request state;
// callers serialize access to each aggregate.
type Engine struct {
	template  Template
	policy    Policy
	lifecycle StateMachineBuilder
	newID     func() string
}

// EngineOption configures the engine
type EngineOption func(*Engine)

// WithIDGenerator overrides how request and stage ids are produced
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) {
		e.newID = fn
	}
}

// NewEngine creates an engine. The policy must authorize some role for every
// department the template routes to.
func NewEngine(template Template, policy Policy, opts ...EngineOption) (*Engine, error) {
	if err := policy.Covers(template); err != nil {
		return nil, fmt.Errorf("policy does not cover template: %w", err)
	}

	e := &Engine{
		template:  template,
		policy:    policy,
		lifecycle: NewRequestLifecycle(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Policy returns the engine's authorization policy
func (e *Engine) Policy() Policy {
	return e.policy
}

// NewRequest materializes a SUBMITTED request with every stage under review
func (e *Engine) NewRequest(ownerID string, payload entity.Payload, now time.Time) *entity.Request {
	req := &entity.Request{
		ID:                   e.newID(),
		ReferenceCode:        NewReferenceCode(),
		OwnerID:              ownerID,
		Payload:              payload,
		CurrentStagePosition: 0,
		Status:               entity.RequestStatusSubmitted,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	specs := e.template.Stages(payload.HasOptionalStage)
	req.Stages = make([]*entity.Stage, len(specs))
	for i, spec := range specs {
		req.Stages[i] = &entity.Stage{
			ID:             e.newID(),
			RequestID:      req.ID,
			Position:       i,
			SequenceNumber: spec.SequenceNumber,
			Department:     spec.Department,
			Status:         entity.StageStatusUnderReview,
		}
	}
	return req
}

// NewReferenceCode returns a human-facing code of the form #A1B2C3.
// It is cosmetic and may collide; storage enforces uniqueness.
func NewReferenceCode() string {
	id := uuid.New()
	return fmt.Sprintf("#A%X", id[:3])
}

// Decide validates and applies a decision to req in place. Preconditions
// are checked in a fixed order and the first failure is returned; on error
// req is left untouched.
func (e *Engine) Decide(ctx context.Context, req *entity.Request, in DecideInput) (*Outcome, error) {
	position := req.StagePosition(in.StageID)
	if position < 0 {
		return nil, fmt.Errorf("%w: stage %s on request %s", ErrStageNotFound, in.StageID, req.ID)
	}
	stage := req.Stages[position]

	dept := e.policy.DepartmentFor(in.Actor.Role)
	if dept == entity.DepartmentNone || dept != stage.Department {
		return nil, fmt.Errorf("%w: role %s cannot act for %s", ErrNotAuthorizedForDepartment, in.Actor.Role, stage.Department)
	}

	remarks := strings.TrimSpace(in.Remarks)
	if remarks == "" {
		return nil, ErrRemarksRequired
	}
	if !in.Decision.IsValid() {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidDecision, in.Decision)
	}

	if position != req.CurrentStagePosition {
		return nil, &NotCurrentStageError{Current: req.CurrentStagePosition, Target: position}
	}
	if stage.IsActioned() {
		return nil, fmt.Errorf("%w: stage %s is %s", ErrAlreadyActioned, stage.ID, stage.Status)
	}

	if !req.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvariantViolation, req.Status)
	}
	progress := Progress{NextPosition: position + 1, StageCount: len(req.Stages)}
	machine := e.lifecycle.Build(req.Status)
	if err := machine.Fire(ctx, in.Decision, progress); err != nil {
		return nil, fmt.Errorf("request %s: %w", req.ID, err)
	}

	next := req.Clone()
	decided := next.Stages[position]
	at := in.At
	decided.Remarks = remarks
	decided.ActedBy = in.Actor.ID
	decided.ActionTimestamp = &at

	outcome := &Outcome{
		PreviousStatus:   req.Status,
		PreviousPosition: req.CurrentStagePosition,
	}

	switch in.Decision {
	case DecisionApprove:
		decided.Status = entity.StageStatusApproved
		if progress.HasNext() {
			next.CurrentStagePosition = progress.NextPosition
			outcome.NextStage = next.Stages[progress.NextPosition]
		} else {
			next.CurrentStagePosition = progress.StageCount
		}
	case DecisionReject:
		decided.Status = entity.StageStatusRejected
	}

	next.Status = machine.State()
	next.UpdatedAt = at
	if derived := entity.DeriveStatus(next.Stages); derived != next.Status {
		return nil, fmt.Errorf("%w: lifecycle reached %s but stages imply %s", ErrInvariantViolation, next.Status, derived)
	}

	*req = *next
	outcome.Stage = decided
	outcome.NewStatus = next.Status
	return outcome, nil
}
