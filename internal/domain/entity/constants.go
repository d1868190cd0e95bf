package entity

// RequestStatus is the overall status of a clearance request
type RequestStatus string

const (
	RequestStatusSubmitted     RequestStatus = "SUBMITTED"
	RequestStatusInProgress    RequestStatus = "IN_PROGRESS"
	RequestStatusFullyApproved RequestStatus = "FULLY_APPROVED"
	RequestStatusRejected      RequestStatus = "REJECTED"
)

// IsOpen reports whether the request can still receive decisions
func (s RequestStatus) IsOpen() bool {
	return s == RequestStatusSubmitted || s == RequestStatusInProgress
}

// IsTerminal returns true once no further decisions are accepted
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusFullyApproved || s == RequestStatusRejected
}

// IsValid returns true if the status is one of the defined constants
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusSubmitted, RequestStatusInProgress, RequestStatusFullyApproved, RequestStatusRejected:
		return true
	default:
		return false
	}
}

func (s RequestStatus) String() string {
	return string(s)
}

// OpenRequestStatuses lists the statuses counted by the one-open-request rule
var OpenRequestStatuses = []RequestStatus{RequestStatusSubmitted, RequestStatusInProgress}

// StageStatus is the status of a single department stage
type StageStatus string

const (
	StageStatusUnderReview StageStatus = "UNDER_REVIEW"
	StageStatusApproved    StageStatus = "APPROVED"
	StageStatusRejected    StageStatus = "REJECTED"
)

func (s StageStatus) String() string {
	return string(s)
}

// Department identifies an approving office
type Department string

// DepartmentNone is the sentinel for roles that belong to no department
const DepartmentNone Department = ""

const (
	DepartmentFaculty           Department = "Faculty"
	DepartmentClassCoordinator  Department = "Class Coordinator"
	DepartmentHOD               Department = "HOD"
	DepartmentHostelWarden      Department = "Hostel Warden"
	DepartmentLibrary           Department = "Library"
	DepartmentWorkshopLab       Department = "Workshop / Lab"
	DepartmentTrainingPlacement Department = "Training & Placement Cell"
	DepartmentGeneralOffice     Department = "General Office"
	DepartmentAccountsOffice    Department = "Accounts Office"
)

func (d Department) String() string {
	return string(d)
}

// Role is an actor's role as asserted by the identity collaborator
type Role string

const (
	RoleStudent          Role = "STUDENT"
	RoleFaculty          Role = "FACULTY"
	RoleClassCoordinator Role = "CLASS_COORDINATOR"
	RoleHOD              Role = "HOD"
	RoleHostelWarden     Role = "HOSTEL_WARDEN"
	RoleLibraryAdmin     Role = "LIBRARY_ADMIN"
	RoleWorkshopAdmin    Role = "WORKSHOP_ADMIN"
	RoleTPOfficer        Role = "TP_OFFICER"
	RoleGeneralOffice    Role = "GENERAL_OFFICE"
	RoleAccountsOfficer  Role = "ACCOUNTS_OFFICER"
	RoleSuperAdmin       Role = "SUPER_ADMIN"
)

func (r Role) String() string {
	return string(r)
}

// History action types
const (
	ActionCreate  = "CREATE"
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
)
