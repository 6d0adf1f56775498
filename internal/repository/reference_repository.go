package repository

import (
	"context"
	"fmt"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ReferenceRepository loads roles and departments.
type ReferenceRepository interface {
	ListRoles(ctx context.Context) ([]domain.Role, error)
	ListDepartments(ctx context.Context) ([]domain.Department, error)
}

type referenceRepository struct {
	db DB
}

// NewReferenceRepository builds the repository.
func NewReferenceRepository(db DB) ReferenceRepository {
	return &referenceRepository{db: db}
}

func (r *referenceRepository) ListRoles(ctx context.Context) ([]domain.Role, error) {
	query, args, err := psql.Select("id", "name", "COALESCE(description, '')").
		From("roles").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build role list: %w", err)
	}

	rows, err := querierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	result := []domain.Role{}
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			return nil, err
		}
		result = append(result, role)
	}
	return result, rows.Err()
}

func (r *referenceRepository) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	query, args, err := psql.Select("id", "name", "COALESCE(description, '')").
		From("departments").
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build department list: %w", err)
	}

	rows, err := querierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	result := []domain.Department{}
	for rows.Next() {
		var dept domain.Department
		if err := rows.Scan(&dept.ID, &dept.Name, &dept.Description); err != nil {
			return nil, err
		}
		result = append(result, dept)
	}
	return result, rows.Err()
}
