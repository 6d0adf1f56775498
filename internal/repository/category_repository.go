package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CategoryRepository reads ticket categories.
type CategoryRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	ListActive(ctx context.Context) ([]domain.Category, error)
}

type categoryRepository struct {
	db DB
}

// NewCategoryRepository builds the repository.
func NewCategoryRepository(db DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// GetByID returns inactive categories too; callers decide whether that is acceptable.
func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	query, args, err := psql.Select("id", "name", "department_id", "is_active").
		From("categories").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build category select: %w", err)
	}

	var category domain.Category
	if err := querierFromCtx(ctx, r.db).QueryRow(ctx, query, args...).Scan(
		&category.ID,
		&category.Name,
		&category.DepartmentID,
		&category.IsActive,
	); err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) ListActive(ctx context.Context) ([]domain.Category, error) {
	query, args, err := psql.Select("id", "name", "department_id", "is_active").
		From("categories").
		Where(sq.Eq{"is_active": true}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build category list: %w", err)
	}

	rows, err := querierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	result := []domain.Category{}
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.DepartmentID, &category.IsActive); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}
