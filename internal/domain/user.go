package domain

import "time"

// User is a seeded identity. Users are read-only for the core.
type User struct {
	ID           int64
	Username     string
	Role         Role
	DepartmentID *int64
	PasswordHash string
	CreatedAt    time.Time
}
