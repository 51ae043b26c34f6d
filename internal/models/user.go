package models

// UserRole represents the village portal roles.
type UserRole string

const (
	RoleCitizen     UserRole = "masyarakat"
	RoleLocalChief  UserRole = "kepala_dusun"
	RoleAdmin       UserRole = "admin"
	RoleVillageHead UserRole = "kepala_desa"
	RoleSystem      UserRole = "system"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleCitizen, RoleLocalChief, RoleAdmin, RoleVillageHead, RoleSystem:
		return true
	}
	return false
}

// Actor identifies who performs a workflow operation.
type Actor struct {
	UserID   string   `json:"userId"`
	Role     UserRole `json:"role"`
	FullName string   `json:"fullName,omitempty"`
}

// SystemActor is used by scheduled jobs.
var SystemActor = Actor{UserID: "system", Role: RoleSystem, FullName: "Sistem"}

// DisplayName prefers the full name and falls back to the user id.
func (a Actor) DisplayName() string {
	if a.FullName != "" {
		return a.FullName
	}
	return a.UserID
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
