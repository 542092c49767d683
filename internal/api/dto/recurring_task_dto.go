package dto

import "github.com/spec-kit/hubops-service/internal/domain"

// CreateRecurringTaskRequest payload. Department is a department name.
type CreateRecurringTaskRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	FrequencyDays int    `json:"frequency_days"`
	NextRunDate   string `json:"next_run_date"`
	Department    string `json:"department"`
}

// UpdateRecurringTaskRequest is a partial update; absent fields are kept.
type UpdateRecurringTaskRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	FrequencyDays *int    `json:"frequency_days"`
	NextRunDate   *string `json:"next_run_date"`
	Department    *string `json:"department"`
}

// RecurringTaskResponse is the public task representation.
type RecurringTaskResponse struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	FrequencyDays  int     `json:"frequency_days"`
	NextRunDate    string  `json:"next_run_date"`
	AssignedDeptID *int64  `json:"assigned_dept_id"`
	AssignedDept   *string `json:"assigned_dept"`
}

// NewRecurringTaskResponse maps a task.
func NewRecurringTaskResponse(task *domain.RecurringTaskView) RecurringTaskResponse {
	return RecurringTaskResponse{
		ID:             task.ID,
		Title:          task.Title,
		Description:    task.Description,
		FrequencyDays:  task.FrequencyDays,
		NextRunDate:    task.NextRunDate.Format(domain.DateLayout),
		AssignedDeptID: task.AssignedDeptID,
		AssignedDept:   task.AssignedDeptName,
	}
}

// NewRecurringTaskResponses maps a list.
func NewRecurringTaskResponses(tasks []domain.RecurringTaskView) []RecurringTaskResponse {
	out := make([]RecurringTaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, NewRecurringTaskResponse(&tasks[i]))
	}
	return out
}
