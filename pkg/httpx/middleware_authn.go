package httpx

import (
	"net/http"
	"strings"

	"github.com/quizverse/quizverse/pkg/jwtx"
	"github.com/quizverse/quizverse/pkg/slogx"
)

// TokenVerifier checks a token of a given kind.
type TokenVerifier interface {
	VerifyKind(token string, kind jwtx.TokenKind) (*jwtx.Claims, error)
}

// AuthnMiddleware requires a valid access token in the Authorization header
// and puts the caller on the request context. Access tokens are stateless,
// so a logged out token keeps working here until it expires.
func AuthnMiddleware(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := bearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			claims, err := v.VerifyKind(raw, jwtx.KindAccess)
			if err != nil {
				log.Warn("jwt verify failed", "error", err)
				writeBearerError(w, "token verification failed")
				return
			}

			ctx = WithAuth(ctx, raw, claims)
			ctx = slogx.With(ctx, "user_id", claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RFC 6750 error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{"details": desc})
}
