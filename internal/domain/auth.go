package domain

import (
	"fmt"
	"strings"
)

// Role enumerates the caller tiers of the property.
type Role string

const (
	RoleTenant Role = "tenant"
	RoleGM     Role = "gm"
	RoleDept   Role = "dept"
	RoleStaff  Role = "staff"
)

// ParseRole validates a role name.
func ParseRole(value string) (Role, error) {
	switch role := Role(strings.ToLower(strings.TrimSpace(value))); role {
	case RoleTenant, RoleGM, RoleDept, RoleStaff:
		return role, nil
	default:
		return "", fmt.Errorf("unknown role %q", value)
	}
}

// RequiresDepartment reports whether users of this role belong to a department.
func (r Role) RequiresDepartment() bool {
	switch r {
	case RoleDept, RoleStaff:
		return true
	case RoleTenant, RoleGM:
		return false
	default:
		return false
	}
}

// Caller is the resolved identity every core operation receives explicitly.
type Caller struct {
	UserID       int64
	Username     string
	Role         Role
	DepartmentID *int64
}

// InDepartment reports whether the caller belongs to department id.
func (c Caller) InDepartment(id *int64) bool {
	return c.DepartmentID != nil && id != nil && *c.DepartmentID == *id
}
