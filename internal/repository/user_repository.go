package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spec-kit/hubops-service/internal/domain"
)

// UserRepository gives read access to seeded identities.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// FirstByRole returns the lowest-id user with role, restricted to
	// departmentID when it is set.
	FirstByRole(ctx context.Context, role domain.Role, departmentID *int64) (*domain.User, error)
	ListStaff(ctx context.Context, departmentID int64) ([]domain.User, error)
}

type userRepository struct {
	q *querier
}

const userColumns = `id, username, role, department_id, password_hash, created_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	const query = `
        INSERT INTO users (username, role, department_id, password_hash, created_at)
        VALUES (?, ?, ?, ?, ?)
        RETURNING id`
	if err := r.q.queryRow(ctx, query,
		user.Username,
		string(user.Role),
		int64Arg(user.DepartmentID),
		user.PasswordHash,
		r.q.timeArg(user.CreatedAt),
	).Scan(&user.ID); err != nil {
		return fmt.Errorf("insert user %q: %w", user.Username, err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(r.q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(r.q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username=?`, username))
}

func (r *userRepository) FirstByRole(ctx context.Context, role domain.Role, departmentID *int64) (*domain.User, error) {
	if departmentID == nil {
		return scanUser(r.q.queryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE role=? ORDER BY id ASC LIMIT 1`, string(role)))
	}
	return scanUser(r.q.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE role=? AND department_id=? ORDER BY id ASC LIMIT 1`,
		string(role), *departmentID))
}

func (r *userRepository) ListStaff(ctx context.Context, departmentID int64) ([]domain.User, error) {
	rows, err := r.q.query(ctx,
		`SELECT `+userColumns+` FROM users WHERE role=? AND department_id=? ORDER BY id ASC`,
		string(domain.RoleStaff), departmentID)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
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

func scanUser(s rowScanner) (*domain.User, error) {
	var (
		user      domain.User
		role      string
		deptID    sql.NullInt64
		createdAt nullTime
	)
	if err := s.Scan(&user.ID, &user.Username, &role, &deptID, &user.PasswordHash, &createdAt); err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	user.DepartmentID = int64Ptr(deptID)
	user.CreatedAt = createdAt.Time
	return &user, nil
}
