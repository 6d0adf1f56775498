package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const duplicateEmailMessage = "A user with this email already exists"

// ReferenceLookup resolves reference ids against the cached tables.
type ReferenceLookup interface {
	Role(ctx context.Context, id int64) (domain.Role, bool, error)
	Department(ctx context.Context, id int64) (domain.Department, bool, error)
}

// UserService guards account invariants for user CRUD.
type UserService struct {
	users      repository.UserRepository
	reference  ReferenceLookup
	tx         TxRunner
	dispatcher events.Dispatcher
	bcryptCost int
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Reference  ReferenceLookup
	Tx         TxRunner
	Dispatcher events.Dispatcher
	BcryptCost int
}

// UserCreateInput describes a new account. Zero values mean missing.
type UserCreateInput struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	RoleID       int64
	DepartmentID *int64
}

// UserUpdateInput describes a partial account edit. An empty Password is ignored.
type UserUpdateInput struct {
	Email        *string
	Password     *string
	FirstName    *string
	LastName     *string
	RoleID       *int64
	DepartmentID domain.Nullable[int64]
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		users:      deps.UserRepo,
		reference:  deps.Reference,
		tx:         deps.Tx,
		dispatcher: deps.Dispatcher,
		bcryptCost: deps.BcryptCost,
	}
}

// ListUsers returns every user, or those of one department.
func (s *UserService) ListUsers(ctx context.Context, departmentID *int64) ([]domain.User, error) {
	return s.users.List(ctx, departmentID)
}

// GetUser fetches a user by id.
func (s *UserService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("User", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return user, nil
}

// CreateUser validates and stores a new active account.
func (s *UserService) CreateUser(ctx context.Context, actorID int64, input UserCreateInput) (*domain.User, error) {
	if strings.TrimSpace(input.Email) == "" || input.Password == "" ||
		strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" || input.RoleID == 0 {
		return nil, apperrors.NewValidationError("Email, password, first name, last name, and role are required", nil)
	}

	email := normalizeEmail(input.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	firstName, err := validateName(input.FirstName, "First name")
	if err != nil {
		return nil, err
	}
	lastName, err := validateName(input.LastName, "Last name")
	if err != nil {
		return nil, err
	}
	if err := s.validateRole(ctx, input.RoleID); err != nil {
		return nil, err
	}
	departmentID, err := s.validateDepartment(ctx, input.DepartmentID)
	if err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, email, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.NewValidationError(duplicateEmailMessage, nil)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		RoleID:       input.RoleID,
		DepartmentID: departmentID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewValidationError(duplicateEmailMessage, nil)
		}
		return nil, err
	}

	created, err := s.GetUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.EventUserCreated, created.ID, actorID, events.UserChangedPayload{
		Email: created.Email,
		Role:  created.Role,
	})
	return created, nil
}

// UpdateUser applies a partial edit. Demoting the last active admin is rejected.
func (s *UserService) UpdateUser(ctx context.Context, actorID, id int64, input UserUpdateInput) (*domain.User, error) {
	existing, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	patch, err := s.buildUserPatch(ctx, id, input)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, apperrors.NewValidationError("No fields to update", nil)
	}

	demotes, err := s.demotesAdmin(ctx, existing, patch)
	if err != nil {
		return nil, err
	}
	if demotes {
		err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
			admins, err := s.users.LockActiveAdmins(ctx)
			if err != nil {
				return err
			}
			current, err := s.users.GetByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if current.IsActive && current.Role == domain.RoleAdmin && admins <= 1 {
				return apperrors.NewValidationError("Cannot remove the admin role from the last active admin account", nil)
			}
			return s.users.Update(ctx, id, patch)
		})
	} else {
		err = s.users.Update(ctx, id, patch)
	}
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, apperrors.NewValidationError(duplicateEmailMessage, nil)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("User", nil)
	}
	if err != nil {
		return nil, err
	}

	updated, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.EventUserUpdated, id, actorID, events.UserChangedPayload{
		Email: updated.Email,
		Role:  updated.Role,
	})
	return updated, nil
}

// ToggleActive flips the account's active flag. Self-toggles and deactivating
// the last active admin are rejected.
func (s *UserService) ToggleActive(ctx context.Context, actorID, id int64) (*domain.User, error) {
	if id == actorID {
		return nil, apperrors.NewValidationError("You cannot deactivate your own account", nil)
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		// Admin rows are locked before the target so concurrent toggles queue in id order.
		admins, err := s.users.LockActiveAdmins(ctx)
		if err != nil {
			return err
		}
		user, err := s.users.GetByIDForUpdate(ctx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("User", nil)
		}
		if err != nil {
			return err
		}
		if user.IsActive && user.Role == domain.RoleAdmin && admins <= 1 {
			return apperrors.NewValidationError("Cannot deactivate the last active admin account", nil)
		}
		return s.users.SetActive(ctx, id, !user.IsActive)
	})
	if err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.EventUserActiveToggled, id, actorID, events.UserActiveToggledPayload{
		IsActive: user.IsActive,
	})
	return user, nil
}

func (s *UserService) buildUserPatch(ctx context.Context, id int64, input UserUpdateInput) (domain.UserPatch, error) {
	var patch domain.UserPatch

	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if err := validateEmail(email); err != nil {
			return patch, err
		}
		exists, err := s.users.ExistsByEmail(ctx, email, id)
		if err != nil {
			return patch, err
		}
		if exists {
			return patch, apperrors.NewValidationError(duplicateEmailMessage, nil)
		}
		patch.Email = &email
	}

	if input.Password != nil && *input.Password != "" {
		if err := validatePassword(*input.Password); err != nil {
			return patch, err
		}
		hash, err := auth.HashPassword(*input.Password, s.bcryptCost)
		if err != nil {
			return patch, fmt.Errorf("hash password: %w", err)
		}
		patch.PasswordHash = &hash
	}

	if input.FirstName != nil {
		firstName, err := validateName(*input.FirstName, "First name")
		if err != nil {
			return patch, err
		}
		patch.FirstName = &firstName
	}
	if input.LastName != nil {
		lastName, err := validateName(*input.LastName, "Last name")
		if err != nil {
			return patch, err
		}
		patch.LastName = &lastName
	}

	if input.RoleID != nil {
		if err := s.validateRole(ctx, *input.RoleID); err != nil {
			return patch, err
		}
		roleID := *input.RoleID
		patch.RoleID = &roleID
	}
	if input.DepartmentID.Set {
		departmentID, err := s.validateDepartment(ctx, input.DepartmentID.Value)
		if err != nil {
			return patch, err
		}
		patch.DepartmentID = domain.Nullable[int64]{Set: true, Value: departmentID}
	}

	return patch, nil
}

// demotesAdmin reports whether patch moves an active admin to another role.
func (s *UserService) demotesAdmin(ctx context.Context, existing *domain.User, patch domain.UserPatch) (bool, error) {
	if patch.RoleID == nil || !existing.IsActive || existing.Role != domain.RoleAdmin {
		return false, nil
	}
	role, _, err := s.reference.Role(ctx, *patch.RoleID)
	if err != nil {
		return false, err
	}
	return role.Name != domain.RoleAdmin, nil
}

func (s *UserService) validateRole(ctx context.Context, roleID int64) error {
	_, ok, err := s.reference.Role(ctx, roleID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewValidationError("Invalid role selected", nil)
	}
	return nil
}

// validateDepartment maps nil and zero to no department.
func (s *UserService) validateDepartment(ctx context.Context, departmentID *int64) (*int64, error) {
	if departmentID == nil || *departmentID == 0 {
		return nil, nil
	}
	_, ok, err := s.reference.Department(ctx, *departmentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewValidationError("Invalid department selected", nil)
	}
	id := *departmentID
	return &id, nil
}

func (s *UserService) publishEvent(ctx context.Context, eventType events.EventType, userID, actorID int64, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		Type:     eventType,
		EntityID: userID,
		ActorID:  actorID,
		Payload:  payload,
	})
}
