package domain

import (
	"fmt"
	"time"
)

// CodeKind tags what a one-time code may be used for.
type CodeKind string

const (
	CodeVerify CodeKind = "verify" // email verification OTP
	CodeForgot CodeKind = "forgot" // forgot-password OTP
	CodeReset  CodeKind = "reset"  // reset form token issued after a forgot OTP
)

// ParseCodeKind validates a stored kind.
func ParseCodeKind(s string) (CodeKind, error) {
	switch k := CodeKind(s); k {
	case CodeVerify, CodeForgot, CodeReset:
		return k, nil
	default:
		return "", fmt.Errorf("unknown code kind %q", s)
	}
}

// OneTimeCode is a persisted OTP or reset form token. Only the fingerprint of
// the value is stored.
type OneTimeCode struct {
	ID        string
	UserID    string
	Kind      CodeKind
	Digest    string // deterministic fingerprint (base64url SHA-256)
	CreatedAt time.Time
}

// Age is measured from creation.
func (c OneTimeCode) Age(now time.Time) time.Duration {
	return now.Sub(c.CreatedAt)
}
