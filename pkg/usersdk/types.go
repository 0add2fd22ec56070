package usersdk

import (
	"time"

	"github.com/quizverse/quizverse/pkg/jwtx"
)

// ErrorResponse is the body of every 4xx/5xx answer.
type ErrorResponse struct {
	// Details is a human readable reason.
	Details string `json:"details" example:"Invalid credentials"`

	// Field names the request field at fault, when there is one.
	Field string `json:"field,omitempty" example:"password"`
}

// MessageResponse is returned by endpoints that only acknowledge.
type MessageResponse struct {
	Message string `json:"message" example:"Email sent"`
}

// ResetTokenResponse is returned once a forgot OTP is accepted.
type ResetTokenResponse struct {
	Message string `json:"message" example:"OTP verified successfully"`

	// Token authorizes a single call to /reset-forgot-password/{token}/.
	Token string `json:"token"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID         string    `json:"id" example:"01JA4Z3Q6Y5T0X1B2C3D4E5F6G"`
	Username   string    `json:"username" example:"alice"`
	Email      string    `json:"email" example:"alice@example.edu"`
	IsVerified bool      `json:"is_verified"`
	Roles      []string  `json:"roles" example:"Student"`
	CreatedAt  time.Time `json:"created_at"`
}

// RoleResponse is one entry of GET /roles.
type RoleResponse struct {
	ID   string `json:"id"`
	Name string `json:"name" example:"Faculty"`
}

// TokenResponse carries a token pair. On refresh the refresh token is the
// one that was sent.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type" example:"Bearer"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in" example:"900"`
}

// RegisterRequest is the body of POST /register/.
type RegisterRequest struct {
	Username string `json:"username" example:"alice"`
	Email    string `json:"email" example:"alice@example.edu"`
	Password string `json:"password" example:"Str0ng!Pass"`
}

// LoginRequest is the body of POST /login/.
type LoginRequest struct {
	UsernameOrEmail string `json:"username_or_email" example:"alice"`
	Password        string `json:"password" example:"Str0ng!Pass"`
}

// RefreshRequest is the body of POST /get-access-token/.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ResetPasswordRequest is the body of POST /reset-password/.
type ResetPasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ForgotPasswordRequest is the body of POST /forgot-password/.
type ForgotPasswordRequest struct {
	Email string `json:"email" example:"alice@example.edu"`
}

// VerifyForgotRequest is the optional body of POST /forgot-password/{otp}/.
type VerifyForgotRequest struct {
	Email string `json:"email,omitempty" example:"alice@example.edu"`
}

// ResetForgotRequest is the body of POST /reset-forgot-password/{token}/.
type ResetForgotRequest struct {
	NewPassword string `json:"new_password"`
}

// AssignRoleRequest is the body of POST /users/{id}/roles/.
type AssignRoleRequest struct {
	Role string `json:"role" example:"Faculty"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status" example:"ok"`
	Uptime  string        `json:"uptime,omitempty" example:"1h2m3s"`
	Version string        `json:"version,omitempty" example:"dev"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency checked by /readyz.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`

	// Codes is set only when one-time codes live outside the database.
	Codes string `json:"codes,omitempty"`
}

// JWKSResponse is the public key set used to verify access tokens.
type JWKSResponse jwtx.JWKS
