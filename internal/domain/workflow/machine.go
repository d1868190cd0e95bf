package workflow

import "context"

// Progress describes where a decision leaves the stage list. Guards use it
// to choose between advancing and completing.
type Progress struct {
	// NextPosition is the index following the stage being decided
	NextPosition int
	// StageCount is the length of the materialized stage list
	StageCount int
}

// HasNext reports whether a stage exists after the decided one
func (p Progress) HasNext() bool {
	return p.NextPosition < p.StageCount
}

// StateMachine tracks a request's overall status and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger, progress Progress) error

	// PermittedTriggers returns all triggers that can be fired in the current state
	PermittedTriggers() []Trigger
}
