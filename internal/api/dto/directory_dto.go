package dto

import "github.com/spec-kit/hubops-service/internal/domain"

// DepartmentResponse is a department.
type DepartmentResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// StaffResponse is a staff member of a department.
type StaffResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// NewDepartmentResponses maps departments.
func NewDepartmentResponses(depts []domain.Department) []DepartmentResponse {
	out := make([]DepartmentResponse, 0, len(depts))
	for _, d := range depts {
		out = append(out, DepartmentResponse{ID: d.ID, Name: d.Name})
	}
	return out
}

// NewStaffResponses maps staff users.
func NewStaffResponses(users []domain.User) []StaffResponse {
	out := make([]StaffResponse, 0, len(users))
	for _, u := range users {
		out = append(out, StaffResponse{ID: u.ID, Username: u.Username})
	}
	return out
}
