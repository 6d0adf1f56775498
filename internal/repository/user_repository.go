package repository

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, id int64, patch domain.UserPatch) error
	SetActive(ctx context.Context, id int64, active bool) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error)
	List(ctx context.Context, departmentID *int64) ([]domain.User, error)
	LockActiveAdmins(ctx context.Context) (int, error)
}

type userRepository struct {
	db DB
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DB) UserRepository {
	return &userRepository{db: db}
}

func userSelect() sq.SelectBuilder {
	return psql.Select(
		"u.id", "u.email", "u.password_hash", "u.first_name", "u.last_name",
		"u.role_id", "r.name", "u.department_id", "d.name",
		"u.is_active", "u.created_at", "u.updated_at",
	).
		From("users u").
		Join("roles r ON u.role_id = r.id").
		LeftJoin("departments d ON u.department_id = d.id")
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query, args, err := psql.Insert("users").
		Columns("email", "password_hash", "first_name", "last_name", "role_id", "department_id", "is_active").
		Values(user.Email, user.PasswordHash, user.FirstName, user.LastName, user.RoleID, user.DepartmentID, true).
		Suffix("RETURNING id, is_active, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build user insert: %w", err)
	}

	err = querierFromCtx(ctx, r.db).QueryRow(ctx, query, args...).
		Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err, emailUniqueConstraint) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, id int64, patch domain.UserPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	update := psql.Update("users")
	if patch.Email != nil {
		update = update.Set("email", *patch.Email)
	}
	if patch.PasswordHash != nil {
		update = update.Set("password_hash", *patch.PasswordHash)
	}
	if patch.FirstName != nil {
		update = update.Set("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		update = update.Set("last_name", *patch.LastName)
	}
	if patch.RoleID != nil {
		update = update.Set("role_id", *patch.RoleID)
	}
	if patch.DepartmentID.Set {
		update = update.Set("department_id", patch.DepartmentID.Value)
	}

	query, args, err := update.
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build user update: %w", err)
	}

	cmd, err := querierFromCtx(ctx, r.db).Exec(ctx, query, args...)
	if isUniqueViolation(err, emailUniqueConstraint) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("update user %d: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query, args, err := psql.Update("users").
		Set("is_active", active).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build user activation: %w", err)
	}

	cmd, err := querierFromCtx(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set user %d active=%t: %w", id, active, err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.fetchSingle(ctx, userSelect().Where(sq.Eq{"u.id": id}))
}

func (r *userRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	return r.fetchSingle(ctx, userSelect().Where(sq.Eq{"u.id": id}).Suffix("FOR UPDATE OF u"))
}

// GetByEmail matches case-insensitively against the normalized unique index.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, userSelect().Where(sq.Expr("LOWER(u.email) = ?", strings.ToLower(email))))
}

// ExistsByEmail ignores excludeID when it is zero.
func (r *userRepository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	inner := psql.Select("1").From("users").Where(sq.Expr("LOWER(email) = ?", strings.ToLower(email)))
	if excludeID > 0 {
		inner = inner.Where(sq.NotEq{"id": excludeID})
	}
	query, args, err := inner.Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("build email lookup: %w", err)
	}

	var exists bool
	if err := querierFromCtx(ctx, r.db).QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup email: %w", err)
	}
	return exists, nil
}

func (r *userRepository) List(ctx context.Context, departmentID *int64) ([]domain.User, error) {
	builder := userSelect()
	if departmentID != nil {
		builder = builder.Where(sq.Eq{"u.department_id": *departmentID})
	}
	query, args, err := builder.OrderBy("u.last_name", "u.first_name", "u.id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user list: %w", err)
	}

	rows, err := querierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	result := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

// LockActiveAdmins row-locks every active admin and returns how many there are.
// Must run inside a transaction for the locks to outlive the call.
func (r *userRepository) LockActiveAdmins(ctx context.Context) (int, error) {
	query, args, err := psql.Select("u.id").
		From("users u").
		Join("roles r ON u.role_id = r.id").
		Where(sq.Eq{"r.name": string(domain.RoleAdmin), "u.is_active": true}).
		OrderBy("u.id").
		Suffix("FOR UPDATE OF u").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build admin lock: %w", err)
	}

	rows, err := querierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("lock active admins: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		count++
	}
	return count, rows.Err()
}

func (r *userRepository) fetchSingle(ctx context.Context, builder sq.SelectBuilder) (*domain.User, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user select: %w", err)
	}
	return scanUser(querierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.RoleID,
		&user.Role,
		&user.DepartmentID,
		&user.DepartmentName,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
