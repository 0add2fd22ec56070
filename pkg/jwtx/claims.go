package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default lifetimes used when the service config leaves them unset.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenKind separates the access and refresh namespaces so a refresh token
// can never be presented as a bearer credential and the other way round.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims are the claims carried by both token kinds.
type Claims struct {
	jwt.RegisteredClaims

	// Kind is "access" or "refresh".
	Kind TokenKind `json:"kind"`

	// Roles are role names held by the subject when the token was minted,
	// e.g. ["Admin", "Student"].
	Roles []string `json:"roles,omitempty"`

	// Username for log lines and clients; never used for authorization.
	Username string `json:"username,omitempty"`
}

// NewClaims builds claims for subject valid for ttl from now.
func NewClaims(
	kind TokenKind,
	subject, username string,
	roles []string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Kind:     kind,
		Roles:    slices.Clone(roles),
		Username: username,
	}
}

// NewJTI returns a random URL safe identifier for the "jti" claim. It also
// keeps two tokens minted in the same second for the same user distinct.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateKind rejects a token minted for a different namespace.
func (c *Claims) ValidateKind(want TokenKind) error {
	if c.Kind != want {
		return ErrKind
	}
	return nil
}

// ValidateIssuer checks the issuer when one is expected.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateExpiryAt checks exp and nbf against now with a leeway for clock skew.
func (c *Claims) ValidateExpiryAt(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	if now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}

// HasRole reports whether the token was minted with role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}
