package entity

import "time"

// Stage is one department's step within a request
type Stage struct {
	ID              string      `json:"id"`
	RequestID       string      `json:"request_id"`
	Position        int         `json:"position"`
	SequenceNumber  int         `json:"sequence_number"`
	Department      Department  `json:"department"`
	Status          StageStatus `json:"status"`
	Remarks         string      `json:"remarks,omitempty"`
	ActedBy         string      `json:"acted_by,omitempty"`
	ActionTimestamp *time.Time  `json:"action_timestamp,omitempty"`
}

// IsActioned returns true once a decision has been recorded on the stage
func (s *Stage) IsActioned() bool {
	return s.Status != StageStatusUnderReview
}

// Clone returns a deep copy of the stage
func (s *Stage) Clone() *Stage {
	c := *s
	if s.ActionTimestamp != nil {
		ts := *s.ActionTimestamp
		c.ActionTimestamp = &ts
	}
	return &c
}
