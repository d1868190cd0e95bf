package entity

// Actor is an authenticated caller as supplied by the identity collaborator
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}
