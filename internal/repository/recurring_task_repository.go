package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spec-kit/hubops-service/internal/domain"
)

// RecurringTaskRepository persists recurring maintenance definitions.
type RecurringTaskRepository interface {
	Create(ctx context.Context, task *domain.RecurringTask) error
	Update(ctx context.Context, task *domain.RecurringTask) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.RecurringTask, error)
	List(ctx context.Context) ([]domain.RecurringTaskView, error)
	// ListDue returns tasks with next_run_date on or before today, by id.
	ListDue(ctx context.Context, today time.Time) ([]domain.RecurringTask, error)
}

type recurringTaskRepository struct {
	q *querier
}

const recurringTaskColumns = `r.id, r.title, r.description, r.frequency_days, r.next_run_date,
               r.assigned_dept_id, r.created_at, r.version`

func (r *recurringTaskRepository) Create(ctx context.Context, task *domain.RecurringTask) error {
	const query = `
        INSERT INTO recurring_tasks (title, description, frequency_days, next_run_date, assigned_dept_id, created_at, version)
        VALUES (?, ?, ?, ?, ?, ?, 1)
        RETURNING id`
	if err := r.q.queryRow(ctx, query,
		task.Title,
		task.Description,
		task.FrequencyDays,
		r.q.dateArg(task.NextRunDate),
		int64Arg(task.AssignedDeptID),
		r.q.timeArg(task.CreatedAt),
	).Scan(&task.ID); err != nil {
		return fmt.Errorf("insert recurring task: %w", err)
	}
	task.Version = 1
	return nil
}

// Update writes the task when the stored version still matches task.Version.
func (r *recurringTaskRepository) Update(ctx context.Context, task *domain.RecurringTask) error {
	const query = `
        UPDATE recurring_tasks SET title=?, description=?, frequency_days=?, next_run_date=?,
            assigned_dept_id=?, version=version+1
        WHERE id=? AND version=?`
	res, err := r.q.exec(ctx, query,
		task.Title,
		task.Description,
		task.FrequencyDays,
		r.q.dateArg(task.NextRunDate),
		int64Arg(task.AssignedDeptID),
		task.ID,
		task.Version,
	)
	if err != nil {
		return fmt.Errorf("update recurring task %d: %w", task.ID, err)
	}
	if err := checkAffected(res); err != nil {
		return err
	}
	task.Version++
	return nil
}

// Delete removes the task permanently. A missing id yields sql.ErrNoRows.
func (r *recurringTaskRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.exec(ctx, `DELETE FROM recurring_tasks WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete recurring task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *recurringTaskRepository) GetByID(ctx context.Context, id int64) (*domain.RecurringTask, error) {
	return scanRecurringTask(r.q.queryRow(ctx,
		`SELECT `+recurringTaskColumns+` FROM recurring_tasks r WHERE r.id=?`, id))
}

func (r *recurringTaskRepository) List(ctx context.Context) ([]domain.RecurringTaskView, error) {
	const query = `
        SELECT ` + recurringTaskColumns + `, d.name
        FROM recurring_tasks r
        LEFT JOIN departments d ON d.id = r.assigned_dept_id
        ORDER BY r.next_run_date ASC, r.id ASC`
	rows, err := r.q.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list recurring tasks: %w", err)
	}
	defer rows.Close()

	result := []domain.RecurringTaskView{}
	for rows.Next() {
		var (
			row      recurringTaskRow
			deptName sql.NullString
		)
		if err := rows.Scan(append(row.dest(), &deptName)...); err != nil {
			return nil, err
		}
		result = append(result, domain.RecurringTaskView{
			RecurringTask:    *row.build(),
			AssignedDeptName: stringPtr(deptName),
		})
	}
	return result, rows.Err()
}

func (r *recurringTaskRepository) ListDue(ctx context.Context, today time.Time) ([]domain.RecurringTask, error) {
	rows, err := r.q.query(ctx,
		`SELECT `+recurringTaskColumns+` FROM recurring_tasks r WHERE r.next_run_date <= ? ORDER BY r.id ASC`,
		r.q.dateArg(today))
	if err != nil {
		return nil, fmt.Errorf("list due recurring tasks: %w", err)
	}
	defer rows.Close()

	result := []domain.RecurringTask{}
	for rows.Next() {
		task, err := scanRecurringTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *task)
	}
	return result, rows.Err()
}

type recurringTaskRow struct {
	task        domain.RecurringTask
	nextRunDate nullTime
	deptID      sql.NullInt64
	createdAt   nullTime
}

func (row *recurringTaskRow) dest() []any {
	t := &row.task
	return []any{&t.ID, &t.Title, &t.Description, &t.FrequencyDays, &row.nextRunDate,
		&row.deptID, &row.createdAt, &t.Version}
}

func (row *recurringTaskRow) build() *domain.RecurringTask {
	t := row.task
	n := row.nextRunDate.Time
	t.NextRunDate = time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	t.AssignedDeptID = int64Ptr(row.deptID)
	t.CreatedAt = row.createdAt.Time
	return &t
}

func scanRecurringTask(s rowScanner) (*domain.RecurringTask, error) {
	var row recurringTaskRow
	if err := s.Scan(row.dest()...); err != nil {
		return nil, err
	}
	return row.build(), nil
}
