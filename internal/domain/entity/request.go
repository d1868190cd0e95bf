package entity

import (
	"math"
	"time"
)

// Request is the clearance request aggregate: the request row plus its ordered stages
type Request struct {
	ID                   string        `json:"id"`
	ReferenceCode        string        `json:"reference_code"`
	OwnerID              string        `json:"owner_id"`
	Payload              Payload       `json:"payload"`
	CurrentStagePosition int           `json:"current_stage_position"`
	Status               RequestStatus `json:"status"`
	Version              int64         `json:"version"`
	Stages               []*Stage      `json:"stages"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// CompletionPercentage is round(100 * approved / total), 0 for an empty stage list
func (r *Request) CompletionPercentage() int {
	total := len(r.Stages)
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(r.ApprovedCount()) / float64(total)))
}

// ApprovedCount returns the number of stages in APPROVED status
func (r *Request) ApprovedCount() int {
	n := 0
	for _, s := range r.Stages {
		if s.Status == StageStatusApproved {
			n++
		}
	}
	return n
}

// CurrentStage returns the stage at the current position, or false once the
// position has run past the end of the list.
func (r *Request) CurrentStage() (*Stage, bool) {
	if r.CurrentStagePosition < 0 || r.CurrentStagePosition >= len(r.Stages) {
		return nil, false
	}
	return r.Stages[r.CurrentStagePosition], true
}

// StagePosition returns the list index of the stage with the given id, or -1
func (r *Request) StagePosition(stageID string) int {
	for i, s := range r.Stages {
		if s.ID == stageID {
			return i
		}
	}
	return -1
}

// RejectedPosition returns the index of the rejected stage, or -1
func (r *Request) RejectedPosition() int {
	for i, s := range r.Stages {
		if s.Status == StageStatusRejected {
			return i
		}
	}
	return -1
}

// IsInert reports whether the stage at position can never be acted on
// because an earlier stage rejected the request.
func (r *Request) IsInert(position int) bool {
	rejected := r.RejectedPosition()
	return rejected >= 0 && position > rejected
}

// Clone returns a deep copy of the aggregate
func (r *Request) Clone() *Request {
	c := *r
	c.Payload.FeeReceipts = append([]string(nil), r.Payload.FeeReceipts...)
	c.Stages = make([]*Stage, len(r.Stages))
	for i, s := range r.Stages {
		c.Stages[i] = s.Clone()
	}
	return &c
}

// DeriveStatus computes the overall status from stage statuses alone
func DeriveStatus(stages []*Stage) RequestStatus {
	approved := 0
	for _, s := range stages {
		switch s.Status {
		case StageStatusRejected:
			return RequestStatusRejected
		case StageStatusApproved:
			approved++
		}
	}
	switch {
	case len(stages) > 0 && approved == len(stages):
		return RequestStatusFullyApproved
	case approved > 0:
		return RequestStatusInProgress
	default:
		return RequestStatusSubmitted
	}
}
