package domain

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID           int64
	Role         RoleName
	DepartmentID *int64
}

// InDepartment reports whether the actor belongs to the given department.
func (a Actor) InDepartment(departmentID int64) bool {
	return a.DepartmentID != nil && *a.DepartmentID == departmentID
}
