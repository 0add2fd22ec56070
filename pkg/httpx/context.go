package httpx

import (
	"context"

	"github.com/quizverse/quizverse/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyRoles  ctxKey = "roles"
	CtxKeyToken  ctxKey = "access_token"
	CtxKeyClaims ctxKey = "claims"
)

// WithAuth stores the verified caller on ctx.
func WithAuth(ctx context.Context, raw string, c *jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyRoles, c.Roles)
	ctx = context.WithValue(ctx, CtxKeyToken, raw)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

// UserID returns the authenticated subject or "".
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(CtxKeyUserID).(string)
	return v
}

// Roles returns the role names from the caller's access token.
func Roles(ctx context.Context) []string {
	v, _ := ctx.Value(CtxKeyRoles).([]string)
	return v
}

// AccessToken returns the raw bearer token of the request.
func AccessToken(ctx context.Context) string {
	v, _ := ctx.Value(CtxKeyToken).(string)
	return v
}

// ClaimsFrom returns the verified claims, if the request was authenticated.
func ClaimsFrom(ctx context.Context) (*jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(*jwtx.Claims)
	return c, ok
}
