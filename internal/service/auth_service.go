package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hubops-service/internal/auth"
	"github.com/spec-kit/hubops-service/internal/domain"
	"github.com/spec-kit/hubops-service/internal/repository"
	apperrors "github.com/spec-kit/hubops-service/pkg/util/errorutil"
)

// DefaultLoginDepartment is used when a dept or staff login names none.
const DefaultLoginDepartment = "Maintenance"

// AuthService issues identity tokens for seeded users.
type AuthService struct {
	store    *repository.Store
	tokenMgr *auth.TokenManager
	logger   *zap.Logger
}

// LoginInput selects a user by role and, for dept/staff, department name.
type LoginInput struct {
	Role       string
	Department string
	Password   string
}

// LoginResult carries the issued token and the resolved user.
type LoginResult struct {
	Token          string
	ExpiresAt      time.Time
	User           domain.User
	DepartmentName *string
}

// NewAuthService builds the service.
func NewAuthService(store *repository.Store, tokens *auth.TokenManager, logger *zap.Logger) *AuthService {
	return &AuthService{store: store, tokenMgr: tokens, logger: loggerOrNop(logger)}
}

// Login picks the first user holding the requested role (within the named
// department for dept and staff) and issues a token for it. Users without
// a password hash accept any password.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
	}

	repos := s.store.Repos()
	var dept *domain.Department
	if role.RequiresDepartment() {
		name := strings.TrimSpace(input.Department)
		if name == "" {
			name = DefaultLoginDepartment
		}
		dept, err = repos.Departments.GetByName(ctx, name)
		if err != nil {
			return nil, notFound(err, "department", map[string]any{"name": name})
		}
	}

	var deptID *int64
	if dept != nil {
		deptID = &dept.ID
	}
	user, err := repos.Users.FirstByRole(ctx, role, deptID)
	if err != nil {
		return nil, notFound(err, "user", map[string]any{"role": string(role)})
	}

	if err := auth.CheckPassword(user.PasswordHash, input.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("login rejected", zap.Int64("user_id", user.ID))
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewInternalError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	result := &LoginResult{Token: token, ExpiresAt: exp, User: *user}
	if dept != nil {
		name := dept.Name
		result.DepartmentName = &name
	}
	s.logger.Info("login", zap.Int64("user_id", user.ID), zap.String("role", string(role)))
	return result, nil
}

// Me returns the stored user behind caller.
func (s *AuthService) Me(ctx context.Context, caller domain.Caller) (*domain.User, error) {
	user, err := s.store.Repos().Users.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, notFound(err, "user", map[string]any{"user_id": caller.UserID})
	}
	return user, nil
}
