package domain

// Category groups tickets and pins them to a department.
type Category struct {
	ID           int64
	Name         string
	DepartmentID int64
	IsActive     bool
}
