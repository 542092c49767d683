package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hubops-service/internal/api/dto"
	"github.com/spec-kit/hubops-service/internal/service"
)

// DepartmentsHandler serves the department and staff directory.
type DepartmentsHandler struct {
	directory *service.DirectoryService
}

// NewDepartmentsHandler constructs handler.
func NewDepartmentsHandler(directory *service.DirectoryService) *DepartmentsHandler {
	return &DepartmentsHandler{directory: directory}
}

// List GET /departments.
func (h *DepartmentsHandler) List(c *fiber.Ctx) error {
	depts, err := h.directory.ListDepartments(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDepartmentResponses(depts)})
}

// Staff GET /departments/:id/staff.
func (h *DepartmentsHandler) Staff(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	staff, err := h.directory.ListStaff(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStaffResponses(staff)})
}
