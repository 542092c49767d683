package service_test

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/hubops-service/internal/auth"
	"github.com/spec-kit/hubops-service/internal/domain"
	"github.com/spec-kit/hubops-service/internal/service"
	apperrors "github.com/spec-kit/hubops-service/pkg/util/errorutil"
)

func newAuthService(env *testEnv) (*service.AuthService, *auth.TokenManager) {
	tokens := auth.NewTokenManager("test-secret", 30)
	return service.NewAuthService(env.Store, tokens, nil), tokens
}

func TestLoginDefaultsToMaintenance(t *testing.T) {
	env := newTestEnv(t, []string{"Security", "Maintenance"})
	env.addUser(t, "security-head", domain.RoleDept, "Security")
	head := env.addUser(t, "maintenance-head", domain.RoleDept, "Maintenance")
	svc, tokens := newAuthService(env)

	result, err := svc.Login(env.Ctx, service.LoginInput{Role: "dept"})
	if err != nil {
		t.Fatal(err)
	}
	if result.User.ID != head.ID || result.DepartmentName == nil || *result.DepartmentName != "Maintenance" {
		t.Fatalf("login picked %+v in %v", result.User, result.DepartmentName)
	}

	claims, err := tokens.ParseToken(result.Token)
	if err != nil {
		t.Fatal(err)
	}
	caller := claims.Caller()
	if caller.UserID != head.ID || caller.Role != domain.RoleDept || !caller.InDepartment(&env.Depts["Maintenance"].ID) {
		t.Fatalf("caller = %+v", caller)
	}

	result, err = svc.Login(env.Ctx, service.LoginInput{Role: "DEPT", Department: "Security"})
	if err != nil {
		t.Fatal(err)
	}
	if result.User.Username != "security-head" {
		t.Fatalf("user = %s", result.User.Username)
	}
}

func TestLoginTenantIgnoresDepartment(t *testing.T) {
	env := newTestEnv(t, nil)
	svc, _ := newAuthService(env)
	result, err := svc.Login(env.Ctx, service.LoginInput{Role: "tenant", Department: "Nowhere"})
	if err != nil {
		t.Fatal(err)
	}
	if result.User.ID != env.Users["tenant"].ID || result.DepartmentName != nil {
		t.Fatalf("result = %+v", result)
	}
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t, []string{"Maintenance", "IT"})
	env.addUser(t, "felix", domain.RoleStaff, "Maintenance")
	svc, _ := newAuthService(env)

	cases := []struct {
		name  string
		input service.LoginInput
		check func(error) bool
	}{
		{"unknown role", service.LoginInput{Role: "admin"}, apperrors.IsValidation},
		{"unknown department", service.LoginInput{Role: "staff", Department: "Gardening"}, apperrors.IsNotFound},
		{"no user in department", service.LoginInput{Role: "staff", Department: "IT"}, apperrors.IsNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Login(env.Ctx, tc.input); !tc.check(err) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestLoginChecksPasswordHash(t *testing.T) {
	env := newTestEnv(t, []string{"Maintenance"})
	hash, err := auth.HashPassword("s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	user := &domain.User{Username: "guarded", Role: domain.RoleStaff, DepartmentID: &env.Depts["Maintenance"].ID, PasswordHash: hash}
	if err := env.Store.Repos().Users.Create(env.Ctx, user); err != nil {
		t.Fatal(err)
	}
	svc, _ := newAuthService(env)

	if _, err := svc.Login(env.Ctx, service.LoginInput{Role: "staff", Password: "wrong"}); !apperrors.IsUnauthorized(err) {
		t.Fatalf("err = %v", err)
	}
	result, err := svc.Login(env.Ctx, service.LoginInput{Role: "staff", Password: "s3cret"})
	if err != nil {
		t.Fatal(err)
	}
	if result.User.ID != user.ID {
		t.Fatalf("user = %+v", result.User)
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t, nil)
	svc, _ := newAuthService(env)
	user, err := svc.Me(env.Ctx, env.caller("gm"))
	if err != nil || user.Username != "gm" {
		t.Fatalf("me = %+v, %v", user, err)
	}
	if _, err := svc.Me(env.Ctx, domain.Caller{UserID: 404, Role: domain.RoleGM}); !apperrors.IsNotFound(err) {
		t.Fatalf("err = %v", err)
	}
}

func TestDirectory(t *testing.T) {
	env := newTestEnv(t, []string{"Maintenance", "Security"})
	b := env.addUser(t, "bea", domain.RoleStaff, "Maintenance")
	a := env.addUser(t, "abe", domain.RoleStaff, "Maintenance")
	env.addUser(t, "head", domain.RoleDept, "Maintenance")
	env.addUser(t, "guard", domain.RoleStaff, "Security")
	dir := service.NewDirectoryService(env.Store)

	depts, err := dir.ListDepartments(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(depts) != 2 || depts[0].Name != "Maintenance" || depts[1].Name != "Security" {
		t.Fatalf("departments = %+v", depts)
	}

	staff, err := dir.ListStaff(env.Ctx, env.Depts["Maintenance"].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(staff) != 2 || staff[0].ID != b.ID || staff[1].ID != a.ID {
		t.Fatalf("staff = %+v", staff)
	}

	staff, err = dir.ListStaff(env.Ctx, 999)
	if err != nil || len(staff) != 0 {
		t.Fatalf("unknown department staff = %+v, %v", staff, err)
	}
}
