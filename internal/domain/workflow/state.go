package workflow

import "github.com/garyjia/nodue-clearance/internal/domain/entity"

// State is a request's overall status as seen by the state machine
type State = entity.RequestStatus

const (
	StateSubmitted     = entity.RequestStatusSubmitted
	StateInProgress    = entity.RequestStatusInProgress
	StateFullyApproved = entity.RequestStatusFullyApproved
	StateRejected      = entity.RequestStatusRejected
)
