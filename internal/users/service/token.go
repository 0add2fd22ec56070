package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quizverse/quizverse/internal/users/domain"
	"github.com/quizverse/quizverse/internal/users/store"
	"github.com/quizverse/quizverse/pkg/cryptox"
	"github.com/quizverse/quizverse/pkg/idx"
	"github.com/quizverse/quizverse/pkg/jwtx"
	"github.com/quizverse/quizverse/pkg/slogx"
)

// ErrInvalidRefresh covers every reason a refresh token is refused.
var ErrInvalidRefresh = errors.New("invalid_refresh_token")

// TokenService mints access/refresh pairs and keeps the session row that ties
// a refresh token to the access token most recently issued for it.
type TokenService struct {
	KeyManager *jwtx.KeyManager
	Store      store.Store
	Config     TokenConfig
	Now        func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TokenService) accessTTL() time.Duration {
	if s.Config.AccessTTL <= 0 {
		return jwtx.DefaultAccessTokenTTL
	}
	return s.Config.AccessTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.Config.RefreshTTL <= 0 {
		return jwtx.DefaultRefreshTokenTTL
	}
	return s.Config.RefreshTTL
}

// Issue signs a new pair for u and records the session.
func (s *TokenService) Issue(ctx context.Context, u domain.User) (domain.TokenPair, error) {
	now := s.now()

	access, err := s.sign(jwtx.KindAccess, u, s.accessTTL(), now)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.sign(jwtx.KindRefresh, u, s.refreshTTL(), now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	sess := domain.Session{
		ID:            idx.NewAt(now).String(),
		UserID:        u.ID,
		RefreshDigest: cryptox.FingerprintToken(refresh),
		AccessDigest:  cryptox.FingerprintToken(access),
		ExpiresAt:     now.Add(s.refreshTTL()),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Store.Sessions().CreateSession(ctx, sess); err != nil {
		return domain.TokenPair{}, fmt.Errorf("create session: %w", err)
	}

	return s.pair(access, refresh), nil
}

// Verify checks signature, issuer, expiry and that the token is of kind.
func (s *TokenService) Verify(token string, kind jwtx.TokenKind) (*jwtx.Claims, error) {
	return s.KeyManager.Verifier.VerifyKind(token, kind)
}

// Refresh swaps a refresh token for a new access token. The session is
// rebound to the new access token and the refresh token is handed back as is.
// Roles are reloaded so a grant made since login shows up.
func (s *TokenService) Refresh(ctx context.Context, refreshToken, subject string) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	claims, err := s.Verify(refreshToken, jwtx.KindRefresh)
	if err != nil {
		log.Info("refresh token rejected", "error", err)
		return domain.TokenPair{}, ErrInvalidRefresh
	}
	if subject != "" && claims.Subject != subject {
		log.Warn("refresh token presented by another user", "user_id", subject, "token_subject", claims.Subject)
		return domain.TokenPair{}, ErrInvalidRefresh
	}

	sess, found, err := s.Store.Sessions().FindSessionByRefresh(ctx, cryptox.FingerprintToken(refreshToken))
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("find session: %w", err)
	}
	if !found || sess.UserID != claims.Subject || sess.Expired(s.now()) {
		log.Info("refresh token has no live session", "user_id", claims.Subject)
		return domain.TokenPair{}, ErrInvalidRefresh
	}

	u, found, err := s.Store.Users().FindUserByID(ctx, sess.UserID)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("load user: %w", err)
	}
	if !found {
		return domain.TokenPair{}, ErrInvalidRefresh
	}

	access, err := s.sign(jwtx.KindAccess, u, s.accessTTL(), s.now())
	if err != nil {
		return domain.TokenPair{}, err
	}

	err = s.Store.Sessions().UpdateSessionAccess(ctx, sess.ID, cryptox.FingerprintToken(access))
	if errors.Is(err, store.ErrNotFound) {
		// Logged out while we were signing.
		return domain.TokenPair{}, ErrInvalidRefresh
	}
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("update session: %w", err)
	}

	return s.pair(access, refreshToken), nil
}

// Revoke deletes the session bound to accessToken. The access token itself
// stays valid until it expires.
func (s *TokenService) Revoke(ctx context.Context, userID, accessToken string) (int64, error) {
	n, err := s.Store.Sessions().DeleteSession(ctx, userID, cryptox.FingerprintToken(accessToken))
	if err != nil {
		return 0, fmt.Errorf("delete session: %w", err)
	}
	return n, nil
}

func (s *TokenService) sign(kind jwtx.TokenKind, u domain.User, ttl time.Duration, now time.Time) (string, error) {
	claims := jwtx.NewClaims(kind, u.ID, u.Username, u.Roles, ttl, s.Config.Issuer, now)
	tok, err := s.KeyManager.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return tok, nil
}

func (s *TokenService) pair(access, refresh string) domain.TokenPair {
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL() / time.Second),
	}
}
