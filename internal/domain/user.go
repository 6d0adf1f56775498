package domain

import "time"

const (
	MaxEmailLength = 255
	MaxNameLength  = 100
)

// User is an account managed by the user lifecycle guard.
type User struct {
	ID             int64
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	RoleID         int64
	Role           RoleName
	DepartmentID   *int64
	DepartmentName *string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Actor returns the acting identity for the user.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role, DepartmentID: u.DepartmentID}
}

// UserPatch carries the columns to change on a user. Nil fields are untouched.
type UserPatch struct {
	Email        *string
	PasswordHash *string
	FirstName    *string
	LastName     *string
	RoleID       *int64
	DepartmentID Nullable[int64]
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Email == nil && p.PasswordHash == nil && p.FirstName == nil &&
		p.LastName == nil && p.RoleID == nil && !p.DepartmentID.Set
}
