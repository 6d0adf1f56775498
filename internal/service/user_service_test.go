package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

type userFixture struct {
	svc      *UserService
	users    *fakeUserRepo
	tx       *passThroughTx
	recorder *eventRecorder
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()

	users := newFakeUserRepo()
	users.put(domain.User{ID: 1, Email: "admin@x.com", Role: domain.RoleAdmin, IsActive: true})
	users.put(domain.User{ID: 2, Email: "mgr@x.com", Role: domain.RoleManager, DepartmentID: ptr(int64(3)), IsActive: true})
	users.put(domain.User{ID: 5, Email: "w5@x.com", Role: domain.RoleWorker, DepartmentID: ptr(int64(3)), IsActive: true})

	dispatcher := events.NewInMemoryDispatcher()
	recorder := &eventRecorder{}
	recorder.attach(dispatcher, events.EventUserCreated, events.EventUserUpdated, events.EventUserActiveToggled)

	tx := &passThroughTx{}
	svc := NewUserService(UserDependencies{
		UserRepo:   users,
		Reference:  NewReferenceService(ReferenceDependencies{ReferenceRepo: newFakeReferenceRepo()}),
		Tx:         tx,
		Dispatcher: dispatcher,
		BcryptCost: bcrypt.MinCost,
	})
	return &userFixture{svc: svc, users: users, tx: tx, recorder: recorder}
}

func validCreateInput() UserCreateInput {
	return UserCreateInput{
		Email:     "  New.User@Example.com ",
		Password:  "Passw0rdX",
		FirstName: " Ann ",
		LastName:  "Lee",
		RoleID:    3,
	}
}

func TestCreateUser(t *testing.T) {
	f := newUserFixture(t)

	user, err := f.svc.CreateUser(context.Background(), 1, validCreateInput())
	require.NoError(t, err)

	assert.Equal(t, "new.user@example.com", user.Email)
	assert.Equal(t, "Ann", user.FirstName)
	assert.Equal(t, domain.RoleWorker, user.Role)
	assert.True(t, user.IsActive)
	assert.Nil(t, user.DepartmentID)
	assert.NotEqual(t, "Passw0rdX", user.PasswordHash)
	assert.NoError(t, auth.ComparePassword(user.PasswordHash, "Passw0rdX"))

	require.Len(t, f.recorder.events, 1)
	assert.Equal(t, events.EventUserCreated, f.recorder.events[0].Type)
	assert.Equal(t, int64(1), f.recorder.events[0].ActorID)
}

func TestCreateUser_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *UserCreateInput)
		msg    string
	}{
		{"missing email", func(in *UserCreateInput) { in.Email = " " }, "Email, password, first name, last name, and role are required"},
		{"missing role", func(in *UserCreateInput) { in.RoleID = 0 }, "Email, password, first name, last name, and role are required"},
		{"bad email", func(in *UserCreateInput) { in.Email = "not-an-email" }, "Invalid email format"},
		{"short password", func(in *UserCreateInput) { in.Password = "Ab1" }, "Password must be at least 8 characters"},
		{"no uppercase", func(in *UserCreateInput) { in.Password = "password1" }, "Password must contain at least one uppercase letter"},
		{"no lowercase", func(in *UserCreateInput) { in.Password = "PASSWORD1" }, "Password must contain at least one lowercase letter"},
		{"no digit", func(in *UserCreateInput) { in.Password = "Passwordx" }, "Password must contain at least one digit"},
		{"password over bcrypt limit", func(in *UserCreateInput) { in.Password = "Passw0rd" + strings.Repeat("x", 70) }, "Password must be 72 bytes or fewer"},
		{"unknown role", func(in *UserCreateInput) { in.RoleID = 9 }, "Invalid role selected"},
		{"unknown department", func(in *UserCreateInput) { in.DepartmentID = ptr(int64(99)) }, "Invalid department selected"},
		{"duplicate email any case", func(in *UserCreateInput) { in.Email = "ADMIN@X.COM" }, "A user with this email already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUserFixture(t)
			input := validCreateInput()
			tt.mutate(&input)

			_, err := f.svc.CreateUser(context.Background(), 1, input)
			assertDomainError(t, err, apperrors.CodeValidation, tt.msg)
			assert.Len(t, f.users.users, 3)
		})
	}
}

func TestCreateUser_ZeroDepartmentMeansNone(t *testing.T) {
	f := newUserFixture(t)
	input := validCreateInput()
	input.DepartmentID = ptr(int64(0))

	user, err := f.svc.CreateUser(context.Background(), 1, input)
	require.NoError(t, err)
	assert.Nil(t, user.DepartmentID)
}

func TestUpdateUser(t *testing.T) {
	t.Run("partial edit", func(t *testing.T) {
		f := newUserFixture(t)
		user, err := f.svc.UpdateUser(context.Background(), 1, 5, UserUpdateInput{
			FirstName:    ptr("Wendy"),
			Email:        ptr("W5@X.com"),
			Password:     ptr(""),
			DepartmentID: domain.Null[int64](),
		})
		require.NoError(t, err)
		assert.Equal(t, "Wendy", user.FirstName)
		assert.Equal(t, "w5@x.com", user.Email)
		assert.Nil(t, user.DepartmentID)
		assert.Empty(t, user.PasswordHash)
		assert.Zero(t, f.tx.calls)
	})

	t.Run("password rehashed", func(t *testing.T) {
		f := newUserFixture(t)
		_, err := f.svc.UpdateUser(context.Background(), 1, 5, UserUpdateInput{Password: ptr("N3wSecret")})
		require.NoError(t, err)
		assert.NoError(t, auth.ComparePassword(f.users.users[5].PasswordHash, "N3wSecret"))
	})

	t.Run("department zero clears", func(t *testing.T) {
		f := newUserFixture(t)
		user, err := f.svc.UpdateUser(context.Background(), 1, 2, UserUpdateInput{DepartmentID: domain.Some(int64(0))})
		require.NoError(t, err)
		assert.Nil(t, user.DepartmentID)
	})

	tests := []struct {
		name  string
		id    int64
		input UserUpdateInput
		code  string
		msg   string
	}{
		{"email taken by another user", 5, UserUpdateInput{Email: ptr("MGR@x.com")}, apperrors.CodeValidation, "A user with this email already exists"},
		{"empty edit", 5, UserUpdateInput{}, apperrors.CodeValidation, "No fields to update"},
		{"blank password only", 5, UserUpdateInput{Password: ptr("")}, apperrors.CodeValidation, "No fields to update"},
		{"weak password", 5, UserUpdateInput{Password: ptr("weakpass")}, apperrors.CodeValidation, "Password must contain at least one uppercase letter"},
		{"unknown role", 5, UserUpdateInput{RoleID: ptr(int64(42))}, apperrors.CodeValidation, "Invalid role selected"},
		{"unknown department", 5, UserUpdateInput{DepartmentID: domain.Some(int64(42))}, apperrors.CodeValidation, "Invalid department selected"},
		{"missing user", 404, UserUpdateInput{FirstName: ptr("x")}, apperrors.CodeNotFound, "User not found"},
		{"demote last admin", 1, UserUpdateInput{RoleID: ptr(int64(2))}, apperrors.CodeValidation, "Cannot remove the admin role from the last active admin account"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUserFixture(t)
			before := f.users.users[tt.id]
			_, err := f.svc.UpdateUser(context.Background(), 1, tt.id, tt.input)
			assertDomainError(t, err, tt.code, tt.msg)
			assert.Equal(t, before, f.users.users[tt.id])
			assert.Empty(t, f.recorder.events)
		})
	}
}

func TestUpdateUser_DemoteAdminWhenAnotherRemains(t *testing.T) {
	f := newUserFixture(t)
	f.users.put(domain.User{ID: 9, Email: "admin2@x.com", Role: domain.RoleAdmin, IsActive: true})

	user, err := f.svc.UpdateUser(context.Background(), 9, 1, UserUpdateInput{RoleID: ptr(int64(2))})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, user.Role)
	assert.Equal(t, 1, f.users.adminLocks)
	assert.Equal(t, 1, f.tx.calls)
}

func TestToggleActive(t *testing.T) {
	t.Run("deactivate and reactivate", func(t *testing.T) {
		f := newUserFixture(t)
		ctx := context.Background()

		user, err := f.svc.ToggleActive(ctx, 1, 5)
		require.NoError(t, err)
		assert.False(t, user.IsActive)

		user, err = f.svc.ToggleActive(ctx, 1, 5)
		require.NoError(t, err)
		assert.True(t, user.IsActive)

		assert.Equal(t, 2, f.users.adminLocks)
		assert.Equal(t, []int64{5, 5}, f.users.lockedUsers)
		require.Len(t, f.recorder.events, 2)
		assert.Equal(t, events.UserActiveToggledPayload{IsActive: true}, f.recorder.events[1].Payload)
	})

	t.Run("self toggle rejected", func(t *testing.T) {
		f := newUserFixture(t)
		_, err := f.svc.ToggleActive(context.Background(), 5, 5)
		assertDomainError(t, err, apperrors.CodeValidation, "You cannot deactivate your own account")
		assert.True(t, f.users.users[5].IsActive)
		assert.Zero(t, f.tx.calls)
	})

	t.Run("last active admin", func(t *testing.T) {
		f := newUserFixture(t)
		_, err := f.svc.ToggleActive(context.Background(), 2, 1)
		assertDomainError(t, err, apperrors.CodeValidation, "Cannot deactivate the last active admin account")
		assert.True(t, f.users.users[1].IsActive)
	})

	t.Run("inactive admin can be reactivated", func(t *testing.T) {
		f := newUserFixture(t)
		f.users.put(domain.User{ID: 9, Email: "old@x.com", Role: domain.RoleAdmin, IsActive: false})
		user, err := f.svc.ToggleActive(context.Background(), 1, 9)
		require.NoError(t, err)
		assert.True(t, user.IsActive)
	})

	t.Run("missing user", func(t *testing.T) {
		f := newUserFixture(t)
		_, err := f.svc.ToggleActive(context.Background(), 1, 404)
		assertDomainError(t, err, apperrors.CodeNotFound, "User not found")
	})
}

func TestListUsers_DepartmentFilter(t *testing.T) {
	f := newUserFixture(t)

	all, err := f.svc.ListUsers(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	scoped, err := f.svc.ListUsers(context.Background(), ptr(int64(3)))
	require.NoError(t, err)
	require.Len(t, scoped, 2)
	assert.Equal(t, int64(2), scoped[0].ID)
}

func TestValidatePassword_RuleOrder(t *testing.T) {
	tests := []struct {
		password string
		msg      string
	}{
		{"short", "Password must be at least 8 characters"},
		{"alllowercase", "Password must contain at least one uppercase letter"},
		{"ALLUPPERCASE1", "Password must contain at least one lowercase letter"},
		{"NoDigitsHere", "Password must contain at least one digit"},
		{"àbcdefgH٣", "Password must contain at least one digit"},
		{"ÀÉÎÕÜabc1", "Password must contain at least one uppercase letter"},
		{"ÀBCDEFG1", "Password must contain at least one lowercase letter"},
		{"😀😀😀😀Aa1", ""},
		{"😀Aa1", "Password must be at least 8 characters"},
		{"Passw0rd" + strings.Repeat("x", 64), ""},
		{"Passw0rd" + strings.Repeat("x", 65), "Password must be 72 bytes or fewer"},
		{"short" + strings.Repeat("é", 40), "Password must contain at least one uppercase letter"},
		{"G00dEnough", ""},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := validatePassword(tt.password)
			if tt.msg == "" {
				assert.NoError(t, err)
				return
			}
			assertDomainError(t, err, apperrors.CodeValidation, tt.msg)
		})
	}
}
