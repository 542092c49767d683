package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hubops-service/internal/service"
)

// SchedulerHandler triggers recurring task sweeps on demand.
type SchedulerHandler struct {
	scheduler *service.SchedulerService
}

// NewSchedulerHandler constructs handler.
func NewSchedulerHandler(scheduler *service.SchedulerService) *SchedulerHandler {
	return &SchedulerHandler{scheduler: scheduler}
}

// Check POST /scheduler/check.
func (h *SchedulerHandler) Check(c *fiber.Ctx) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}
	result, err := h.scheduler.SweepAs(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}
