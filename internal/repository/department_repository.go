package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/hubops-service/internal/domain"
)

// DepartmentRepository manages department persistence.
type DepartmentRepository interface {
	Create(ctx context.Context, dept *domain.Department) error
	GetByID(ctx context.Context, id int64) (*domain.Department, error)
	GetByName(ctx context.Context, name string) (*domain.Department, error)
	List(ctx context.Context) ([]domain.Department, error)
}

type departmentRepository struct {
	q *querier
}

func (r *departmentRepository) Create(ctx context.Context, dept *domain.Department) error {
	if dept.CreatedAt.IsZero() {
		dept.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO departments (name, created_at) VALUES (?, ?) RETURNING id`
	if err := r.q.queryRow(ctx, query, dept.Name, r.q.timeArg(dept.CreatedAt)).Scan(&dept.ID); err != nil {
		return fmt.Errorf("insert department %q: %w", dept.Name, err)
	}
	return nil
}

func (r *departmentRepository) GetByID(ctx context.Context, id int64) (*domain.Department, error) {
	return r.fetchSingle(ctx, `SELECT id, name, created_at FROM departments WHERE id=?`, id)
}

// GetByName matches the exact department name.
func (r *departmentRepository) GetByName(ctx context.Context, name string) (*domain.Department, error) {
	return r.fetchSingle(ctx, `SELECT id, name, created_at FROM departments WHERE name=?`, name)
}

func (r *departmentRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Department, error) {
	var (
		dept      domain.Department
		createdAt nullTime
	)
	if err := r.q.queryRow(ctx, query, arg).Scan(&dept.ID, &dept.Name, &createdAt); err != nil {
		return nil, err
	}
	dept.CreatedAt = createdAt.Time
	return &dept, nil
}

func (r *departmentRepository) List(ctx context.Context) ([]domain.Department, error) {
	rows, err := r.q.query(ctx, `SELECT id, name, created_at FROM departments ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	result := []domain.Department{}
	for rows.Next() {
		var (
			dept      domain.Department
			createdAt nullTime
		)
		if err := rows.Scan(&dept.ID, &dept.Name, &createdAt); err != nil {
			return nil, err
		}
		dept.CreatedAt = createdAt.Time
		result = append(result, dept)
	}
	return result, rows.Err()
}
