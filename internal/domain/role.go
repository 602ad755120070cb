package domain

// Role represents the single authorization role a user can hold
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleCoach  Role = "coach"
	RoleClient Role = "client"

	// RoleNone marks the absence of an assigned role (pre-onboarding)
	RoleNone Role = ""
)

// ValidRole reports whether r is one of the enumerated assignable roles
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleCoach, RoleClient:
		return true
	}
	return false
}

// RoleAssignment represents a persisted user -> role mapping row
type RoleAssignment struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}
