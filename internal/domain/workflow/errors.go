package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when no guarded transition accepted the trigger
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrInvariantViolation is returned when a transition would leave the
	// overall status out of step with the stage statuses
	ErrInvariantViolation = errors.New("request invariant violated")

	ErrRequestNotFound            = errors.New("request not found")
	ErrStageNotFound              = errors.New("stage not found")
	ErrNotAuthorizedForDepartment = errors.New("actor is not authorized for this department")
	ErrRemarksRequired            = errors.New("remarks are required")
	ErrInvalidDecision            = errors.New("decision must be APPROVE or REJECT")
	ErrNotCurrentStage            = errors.New("stage is not the current stage")
	ErrAlreadyActioned            = errors.New("stage has already been actioned")
	ErrDuplicateOpenRequest       = errors.New("owner already has an open request")
	ErrForbidden                  = errors.New("actor may not access this resource")
	ErrCertificateNotIssued       = errors.New("certificate is only issued for fully approved requests")
)

// NotCurrentStageError reports the position the request is actually waiting on
type NotCurrentStageError struct {
	Current int
	Target  int
}

func (e *NotCurrentStageError) Error() string {
	return fmt.Sprintf("%s: request is at position %d, stage is at position %d", ErrNotCurrentStage, e.Current, e.Target)
}

// Is lets errors.Is match the sentinel
func (e *NotCurrentStageError) Is(target error) bool {
	return target == ErrNotCurrentStage
}

// Kind groups errors into the categories callers react to
type Kind string

const (
	KindInputRejected       Kind = "input_rejected"
	KindAuthorizationDenied Kind = "authorization_denied"
	KindStateConflict       Kind = "state_conflict"
	KindNotFound            Kind = "not_found"
	KindInternal            Kind = "internal"
)

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRemarksRequired), errors.Is(err, ErrInvalidDecision):
		return KindInputRejected
	case errors.Is(err, ErrNotAuthorizedForDepartment), errors.Is(err, ErrForbidden):
		return KindAuthorizationDenied
	case errors.Is(err, ErrNotCurrentStage), errors.Is(err, ErrAlreadyActioned),
		errors.Is(err, ErrDuplicateOpenRequest), errors.Is(err, ErrCertificateNotIssued):
		return KindStateConflict
	case errors.Is(err, ErrRequestNotFound), errors.Is(err, ErrStageNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
