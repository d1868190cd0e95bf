package workflow

// Trigger represents a reviewer decision that can cause a state transition
type Trigger string

const (
	TriggerApprove Trigger = "APPROVE"
	TriggerReject  Trigger = "REJECT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// IsValid reports whether the trigger is a known decision
func (t Trigger) IsValid() bool {
	return t == TriggerApprove || t == TriggerReject
}

// Decision is the reviewer's verdict on a stage. It is the trigger fired on
// the request's state machine.
type Decision = Trigger

const (
	DecisionApprove = TriggerApprove
	DecisionReject  = TriggerReject
)
