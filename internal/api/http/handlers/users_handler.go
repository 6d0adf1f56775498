package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const invalidUserID = "Invalid user ID"

// UsersHandler exposes account management endpoints.
type UsersHandler struct {
	users     *service.UserService
	reference *service.ReferenceService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService, reference *service.ReferenceService) *UsersHandler {
	return &UsersHandler{users: users, reference: reference}
}

// ListUsers GET /api/users?departmentId=3.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	var departmentID *int64
	if raw := c.Query("departmentId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return apperrors.NewValidationError("Invalid department ID", nil)
		}
		departmentID = &id
	}
	users, err := h.users.ListUsers(c.UserContext(), departmentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponses(users)})
}

// GetUser GET /api/users/:id.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id", invalidUserID)
	if err != nil {
		return err
	}
	user, err := h.users.GetUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// CreateUser POST /api/users.
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.users.CreateUser(c.UserContext(), actor.ID, service.UserCreateInput{
		Email:        req.Email,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		RoleID:       req.RoleID,
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// UpdateUser PUT /api/users/:id.
func (h *UsersHandler) UpdateUser(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", invalidUserID)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.users.UpdateUser(c.UserContext(), actor.ID, id, service.UserUpdateInput{
		Email:        req.Email,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		RoleID:       req.RoleID,
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ToggleActive DELETE /api/users/:id flips the active flag.
func (h *UsersHandler) ToggleActive(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", invalidUserID)
	if err != nil {
		return err
	}
	user, err := h.users.ToggleActive(c.UserContext(), actor.ID, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ListRoles GET /api/users/roles.
func (h *UsersHandler) ListRoles(c *fiber.Ctx) error {
	roles, err := h.reference.Roles(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": roles})
}

// ListDepartments GET /api/users/departments.
func (h *UsersHandler) ListDepartments(c *fiber.Ctx) error {
	departments, err := h.reference.Departments(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": departments})
}
