package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequestCreated       Type = "request.created"
	TypeStageApproved        Type = "stage.approved"
	TypeStageRejected        Type = "stage.rejected"
	TypeRequestFullyApproved Type = "request.fully_approved"
	TypeRequestRejected      Type = "request.rejected"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequestCreated,
		TypeStageApproved,
		TypeStageRejected,
		TypeRequestFullyApproved,
		TypeRequestRejected:
		return true
	default:
		return false
	}
}

// Payload keys shared by producers and subscribers
const (
	KeyReferenceCode  = "reference_code"
	KeyOwnerID        = "owner_id"
	KeyApplicantName  = "applicant_name"
	KeyStageID        = "stage_id"
	KeyDepartment     = "department"
	KeyActorID        = "actor_id"
	KeyRemarks        = "remarks"
	KeyPreviousStatus = "previous_status"
	KeyNewStatus      = "new_status"
	KeyNextDepartment = "next_department"
	KeyCompletion     = "completion_percentage"
)
