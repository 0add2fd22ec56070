package usersdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the users service without credentials.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a client with a 10 second request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Livez calls the liveness probe.
func (c *Client) Livez(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, "/livez", "", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Readyz calls the readiness probe.
func (c *Client) Readyz(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, "/readyz", "", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// JWKS fetches the public signing keys.
func (c *Client) JWKS(ctx context.Context) (*JWKSResponse, error) {
	var out JWKSResponse
	if err := c.do(ctx, http.MethodGet, "/.well-known/jwks.json", "", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. A verify OTP is mailed to req.Email.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	var out UserResponse
	if err := c.do(ctx, http.MethodPost, "/register/", "", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login signs in by username or email and returns a Session.
func (c *Client) Login(ctx context.Context, usernameOrEmail, password string) (*Session, error) {
	var out TokenResponse
	req := LoginRequest{UsernameOrEmail: usernameOrEmail, Password: password}
	if err := c.do(ctx, http.MethodPost, "/login/", "", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return c.NewSession(out), nil
}

// ForgotPassword mails a forgot OTP to email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/forgot-password/", "", ForgotPasswordRequest{Email: email}, nil, http.StatusOK)
}

// VerifyForgotOTP trades a forgot OTP for a reset token. email may be empty.
func (c *Client) VerifyForgotOTP(ctx context.Context, otp, email string) (string, error) {
	var out ResetTokenResponse
	path := "/forgot-password/" + url.PathEscape(otp) + "/"
	if err := c.do(ctx, http.MethodPost, path, "", VerifyForgotRequest{Email: email}, &out, http.StatusOK); err != nil {
		return "", err
	}
	return out.Token, nil
}

// ResetForgotPassword sets a new password with a reset token.
func (c *Client) ResetForgotPassword(ctx context.Context, token, newPassword string) error {
	path := "/reset-forgot-password/" + url.PathEscape(token) + "/"
	return c.do(ctx, http.MethodPost, path, "", ResetForgotRequest{NewPassword: newPassword}, nil, http.StatusOK)
}

// do sends body as JSON when non-nil and decodes a want response into out.
func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any, want int) error {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return decodeJSON(resp, out, want)
}

// decodeJSON reads the body once and returns *APIError on an unexpected status.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, bodyBytes)
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
