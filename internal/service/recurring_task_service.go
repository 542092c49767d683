package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hubops-service/internal/clock"
	"github.com/spec-kit/hubops-service/internal/domain"
	"github.com/spec-kit/hubops-service/internal/repository"
	apperrors "github.com/spec-kit/hubops-service/pkg/util/errorutil"
)

// RecurringTaskService manages recurring maintenance definitions. Every
// operation is restricted to the GM.
type RecurringTaskService struct {
	store  *repository.Store
	clock  clock.Clock
	logger *zap.Logger
}

// RecurringTaskDependencies bundles collaborators.
type RecurringTaskDependencies struct {
	Store  *repository.Store
	Clock  clock.Clock
	Logger *zap.Logger
}

// RecurringTaskInput is the creation payload. Department is a name; an
// unknown name leaves the task unassigned.
type RecurringTaskInput struct {
	Title         string
	Description   string
	FrequencyDays int
	NextRunDate   string
	Department    string
}

// RecurringTaskPatch is a partial update. Nil fields keep their value. An
// empty Department clears the assignment, an unknown name keeps it.
type RecurringTaskPatch struct {
	Title         *string
	Description   *string
	FrequencyDays *int
	NextRunDate   *string
	Department    *string
}

// NewRecurringTaskService constructs the service.
func NewRecurringTaskService(deps RecurringTaskDependencies) *RecurringTaskService {
	c := deps.Clock
	if c == nil {
		c = clock.Real()
	}
	return &RecurringTaskService{store: deps.Store, clock: c, logger: loggerOrNop(deps.Logger)}
}

// List returns every task ordered by next run date.
func (s *RecurringTaskService) List(ctx context.Context, caller domain.Caller) ([]domain.RecurringTaskView, error) {
	if err := requireRole(caller, domain.RoleGM); err != nil {
		return nil, err
	}
	tasks, err := s.store.Repos().RecurringTasks.List(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return tasks, nil
}

// Create validates and stores a new task.
func (s *RecurringTaskService) Create(ctx context.Context, caller domain.Caller, input RecurringTaskInput) (*domain.RecurringTaskView, error) {
	if err := requireRole(caller, domain.RoleGM); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	if err := validateFrequency(input.FrequencyDays); err != nil {
		return nil, err
	}
	next, err := parseRunDate(input.NextRunDate)
	if err != nil {
		return nil, err
	}

	task := &domain.RecurringTask{
		Title:         title,
		Description:   strings.TrimSpace(input.Description),
		FrequencyDays: input.FrequencyDays,
		NextRunDate:   next,
		CreatedAt:     s.clock.Now(),
	}

	var view *domain.RecurringTaskView
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		dept, err := s.lookupDepartment(ctx, repos, input.Department)
		if err != nil {
			return err
		}
		if dept != nil {
			task.AssignedDeptID = &dept.ID
		}
		if err := repos.RecurringTasks.Create(ctx, task); err != nil {
			return err
		}
		view = taskView(task, dept)
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.logger.Info("recurring task created",
		zap.Int64("task_id", task.ID),
		zap.Int("frequency_days", task.FrequencyDays),
		zap.String("next_run_date", task.NextRunDate.Format(domain.DateLayout)))
	return view, nil
}

// Update merges patch into the stored task.
func (s *RecurringTaskService) Update(ctx context.Context, caller domain.Caller, id int64, patch RecurringTaskPatch) (*domain.RecurringTaskView, error) {
	if err := requireRole(caller, domain.RoleGM); err != nil {
		return nil, err
	}

	var view *domain.RecurringTaskView
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		task, err := repos.RecurringTasks.GetByID(ctx, id)
		if err != nil {
			return notFound(err, "recurring task", map[string]any{"task_id": id})
		}

		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return apperrors.NewValidationError("title cannot be empty", map[string]any{"field": "title"})
			}
			task.Title = title
		}
		if patch.Description != nil {
			task.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.FrequencyDays != nil {
			if err := validateFrequency(*patch.FrequencyDays); err != nil {
				return err
			}
			task.FrequencyDays = *patch.FrequencyDays
		}
		if patch.NextRunDate != nil {
			next, err := parseRunDate(*patch.NextRunDate)
			if err != nil {
				return err
			}
			task.NextRunDate = next
		}
		if patch.Department != nil {
			name := strings.TrimSpace(*patch.Department)
			if name == "" {
				task.AssignedDeptID = nil
			} else {
				dept, err := s.lookupDepartment(ctx, repos, name)
				if err != nil {
					return err
				}
				if dept != nil {
					task.AssignedDeptID = &dept.ID
				}
			}
		}

		if err := repos.RecurringTasks.Update(ctx, task); err != nil {
			return err
		}
		var dept *domain.Department
		if task.AssignedDeptID != nil {
			dept, err = repos.Departments.GetByID(ctx, *task.AssignedDeptID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return err
			}
		}
		view = taskView(task, dept)
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	return view, nil
}

// Delete removes the task permanently.
func (s *RecurringTaskService) Delete(ctx context.Context, caller domain.Caller, id int64) error {
	if err := requireRole(caller, domain.RoleGM); err != nil {
		return err
	}
	if err := s.store.Repos().RecurringTasks.Delete(ctx, id); err != nil {
		return notFound(err, "recurring task", map[string]any{"task_id": id})
	}
	s.logger.Info("recurring task deleted", zap.Int64("task_id", id))
	return nil
}

// lookupDepartment resolves a department name. Blank and unknown names
// yield nil without error.
func (s *RecurringTaskService) lookupDepartment(ctx context.Context, repos repository.Repositories, name string) (*domain.Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	dept, err := repos.Departments.GetByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Info("ignoring unknown department for recurring task", zap.String("department", name))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return dept, nil
}

func validateFrequency(days int) error {
	if days <= 0 {
		return apperrors.NewValidationError("frequency_days must be a positive integer",
			map[string]any{"field": "frequency_days", "value": days})
	}
	return nil
}

func parseRunDate(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, apperrors.NewValidationError("next_run_date is required", map[string]any{"field": "next_run_date"})
	}
	date, err := domain.ParseDate(value)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(err.Error(), map[string]any{"field": "next_run_date"})
	}
	return date, nil
}

func taskView(task *domain.RecurringTask, dept *domain.Department) *domain.RecurringTaskView {
	view := &domain.RecurringTaskView{RecurringTask: *task}
	if dept != nil {
		name := dept.Name
		view.AssignedDeptName = &name
	}
	return view
}
