package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hubops-service/internal/api/dto"
	"github.com/spec-kit/hubops-service/internal/service"
	apperrors "github.com/spec-kit/hubops-service/pkg/util/errorutil"
)

// RecurringTasksHandler manages recurring maintenance definitions.
type RecurringTasksHandler struct {
	tasks *service.RecurringTaskService
}

// NewRecurringTasksHandler constructs handler.
func NewRecurringTasksHandler(tasks *service.RecurringTaskService) *RecurringTasksHandler {
	return &RecurringTasksHandler{tasks: tasks}
}

// List GET /recurring-tasks.
func (h *RecurringTasksHandler) List(c *fiber.Ctx) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}
	tasks, err := h.tasks.List(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRecurringTaskResponses(tasks)})
}

// Create POST /recurring-tasks.
func (h *RecurringTasksHandler) Create(c *fiber.Ctx) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}
	var req dto.CreateRecurringTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	task, err := h.tasks.Create(c.UserContext(), caller, service.RecurringTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		FrequencyDays: req.FrequencyDays,
		NextRunDate:   req.NextRunDate,
		Department:    req.Department,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRecurringTaskResponse(task)})
}

// Update PUT /recurring-tasks/:id.
func (h *RecurringTasksHandler) Update(c *fiber.Ctx) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateRecurringTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	task, err := h.tasks.Update(c.UserContext(), caller, id, service.RecurringTaskPatch{
		Title:         req.Title,
		Description:   req.Description,
		FrequencyDays: req.FrequencyDays,
		NextRunDate:   req.NextRunDate,
		Department:    req.Department,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRecurringTaskResponse(task)})
}

// Delete DELETE /recurring-tasks/:id.
func (h *RecurringTasksHandler) Delete(c *fiber.Ctx) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.tasks.Delete(c.UserContext(), caller, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
