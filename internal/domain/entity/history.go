package entity

import "time"

// RequestHistory is one append-only entry in a request's audit trail
type RequestHistory struct {
	ID             int64         `json:"id"`
	RequestID      string        `json:"request_id"`
	StageID        string        `json:"stage_id,omitempty"`
	ActorID        string        `json:"actor_id"`
	ActorRole      Role          `json:"actor_role"`
	PreviousStatus RequestStatus `json:"previous_status,omitempty"`
	NewStatus      RequestStatus `json:"new_status"`
	ActionType     string        `json:"action_type"`
	Remarks        string        `json:"remarks,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
}

// ReviewRecord is a stage decided by a reviewer, joined with its request summary
type ReviewRecord struct {
	Stage         Stage         `json:"stage"`
	ReferenceCode string        `json:"reference_code"`
	OwnerID       string        `json:"owner_id"`
	ApplicantName string        `json:"applicant_name"`
	RequestStatus RequestStatus `json:"request_status"`
}
