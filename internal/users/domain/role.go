package domain

import "time"

// Seeded role names.
const (
	RoleAdmin   = "Admin"
	RoleFaculty = "Faculty"
	RoleStudent = "Student"
)

type Role struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
