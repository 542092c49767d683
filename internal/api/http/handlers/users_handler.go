package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hubops-service/internal/api/dto"
	"github.com/spec-kit/hubops-service/internal/service"
	apperrors "github.com/spec-kit/hubops-service/pkg/util/errorutil"
)

// UsersHandler exposes login and identity endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Login handles POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Role == "" {
		return apperrors.NewValidationError("role required", map[string]any{"field": "role"})
	}

	result, err := h.auth.Login(c.UserContext(), service.LoginInput{
		Role:       req.Role,
		Department: req.Department,
		Password:   req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      dto.NewUserResponse(&result.User, result.DepartmentName),
	}})
}

// Me handles GET /auth/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}
	user, err := h.auth.Me(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user, nil)})
}
