package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// CreateUserRequest payload. departmentId 0 or null means no department.
type CreateUserRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	RoleID       int64  `json:"roleId"`
	DepartmentID *int64 `json:"departmentId"`
}

// UpdateUserRequest payload. An empty password leaves it unchanged.
type UpdateUserRequest struct {
	Email        *string                `json:"email"`
	Password     *string                `json:"password"`
	FirstName    *string                `json:"firstName"`
	LastName     *string                `json:"lastName"`
	RoleID       *int64                 `json:"roleId"`
	DepartmentID domain.Nullable[int64] `json:"departmentId"`
}

// UserResponse never carries the password hash.
type UserResponse struct {
	ID             int64           `json:"id"`
	Email          string          `json:"email"`
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	RoleID         int64           `json:"roleId"`
	Role           domain.RoleName `json:"role"`
	DepartmentID   *int64          `json:"departmentId"`
	DepartmentName *string         `json:"department"`
	IsActive       bool            `json:"isActive"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// NewUserResponse maps the domain user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:             user.ID,
		Email:          user.Email,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		RoleID:         user.RoleID,
		Role:           user.Role,
		DepartmentID:   user.DepartmentID,
		DepartmentName: user.DepartmentName,
		IsActive:       user.IsActive,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
}

// NewUserResponses maps a user listing.
func NewUserResponses(users []domain.User) []UserResponse {
	resp := make([]UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, NewUserResponse(&users[i]))
	}
	return resp
}
