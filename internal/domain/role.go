package domain

// RoleName enumerates the three access tiers.
type RoleName string

const (
	RoleAdmin   RoleName = "admin"
	RoleManager RoleName = "manager"
	RoleWorker  RoleName = "worker"
)

// Valid reports whether the name is a known role.
func (r RoleName) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleWorker:
		return true
	}
	return false
}

// Role is immutable reference data.
type Role struct {
	ID          int64    `json:"id"`
	Name        RoleName `json:"name"`
	Description string   `json:"description"`
}

// ReferenceSnapshot is the cached set of roles and departments. Version
// changes on every reload so instances can tell a stale copy apart.
type ReferenceSnapshot struct {
	Version     string       `json:"version"`
	Roles       []Role       `json:"roles"`
	Departments []Department `json:"departments"`
}
