package usersdk

import (
	"context"
	"net/http"
	"net/url"
	"sync"
)

// Session makes calls as a signed in user. It is safe for concurrent use.
type Session struct {
	client *Client

	mu      sync.RWMutex
	access  string
	refresh string
}

// NewSession wraps an existing token pair.
func (c *Client) NewSession(tokens TokenResponse) *Session {
	return &Session{client: c, access: tokens.AccessToken, refresh: tokens.RefreshToken}
}

// Tokens returns the current access and refresh tokens.
func (s *Session) Tokens() (access, refresh string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, s.refresh
}

func (s *Session) do(ctx context.Context, method, path string, body, out any, want int) error {
	access, _ := s.Tokens()
	return s.client.do(ctx, method, path, access, body, out, want)
}

// Me returns the signed in user.
func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	var out UserResponse
	if err := s.do(ctx, http.MethodGet, "/user", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers returns every account. The caller needs the Admin role.
func (s *Session) ListUsers(ctx context.Context) ([]UserResponse, error) {
	var out []UserResponse
	if err := s.do(ctx, http.MethodGet, "/users", nil, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRoles returns the grantable roles.
func (s *Session) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	var out []RoleResponse
	if err := s.do(ctx, http.MethodGet, "/roles", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// SendVerification mails a fresh verify OTP.
func (s *Session) SendVerification(ctx context.Context) error {
	return s.do(ctx, http.MethodPost, "/verify/", nil, nil, http.StatusOK)
}

// VerifyEmail redeems a verify OTP.
func (s *Session) VerifyEmail(ctx context.Context, otp string) error {
	return s.do(ctx, http.MethodPost, "/verify/"+url.PathEscape(otp)+"/", nil, nil, http.StatusOK)
}

// Refresh replaces the access token. The refresh token does not change.
func (s *Session) Refresh(ctx context.Context) error {
	_, refresh := s.Tokens()

	var out TokenResponse
	if err := s.do(ctx, http.MethodPost, "/get-access-token/", RefreshRequest{RefreshToken: refresh}, &out, http.StatusOK); err != nil {
		return err
	}

	s.mu.Lock()
	s.access, s.refresh = out.AccessToken, out.RefreshToken
	s.mu.Unlock()
	return nil
}

// ResetPassword changes the password of the signed in user.
func (s *Session) ResetPassword(ctx context.Context, current, next string) error {
	req := ResetPasswordRequest{CurrentPassword: current, NewPassword: next}
	return s.do(ctx, http.MethodPost, "/reset-password/", req, nil, http.StatusOK)
}

// AssignRole grants role to userID. The caller needs the Admin role.
func (s *Session) AssignRole(ctx context.Context, userID, role string) (*UserResponse, error) {
	var out UserResponse
	path := "/users/" + url.PathEscape(userID) + "/roles/"
	if err := s.do(ctx, http.MethodPost, path, AssignRoleRequest{Role: role}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the server side session. The access token stays valid until
// it expires; the refresh token stops working at once.
func (s *Session) Logout(ctx context.Context) error {
	return s.do(ctx, http.MethodPost, "/logout/", nil, nil, http.StatusOK)
}
