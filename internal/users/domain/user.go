package domain

import (
	"slices"
	"time"
)

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // argon2id encoded, never the plaintext
	IsVerified   bool
	Roles        []string // role names, sorted
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether the user holds the named role.
func (u User) HasRole(name string) bool {
	return slices.Contains(u.Roles, name)
}
