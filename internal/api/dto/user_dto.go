package dto

import (
	"time"

	"github.com/spec-kit/hubops-service/internal/domain"
)

// LoginRequest selects a seeded identity. Department applies to dept and
// staff logins only.
type LoginRequest struct {
	Role       string `json:"role"`
	Department string `json:"department"`
	Password   string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID           int64       `json:"id"`
	Username     string      `json:"username"`
	Role         domain.Role `json:"role"`
	DepartmentID *int64      `json:"department_id"`
	Department   *string     `json:"department,omitempty"`
}

// NewUserResponse maps a user.
func NewUserResponse(user *domain.User, department *string) UserResponse {
	return UserResponse{
		ID:           user.ID,
		Username:     user.Username,
		Role:         user.Role,
		DepartmentID: user.DepartmentID,
		Department:   department,
	}
}
