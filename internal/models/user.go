package models

// Role mirrors the role claim in tokens issued by the enclosing application.
// The engine records who acted; authorization policy stays with the caller.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleTechnician Role = "technician"
	RoleViewer     Role = "viewer"
)

// IsValidRole checks if a role is valid.
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleTechnician, RoleViewer:
		return true
	default:
		return false
	}
}

// Claims is the actor identity extracted from an enclosing-application token.
type Claims struct {
	ActorID string `json:"actor_id"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
	Exp     int64  `json:"exp"`
}
