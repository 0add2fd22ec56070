package http

import (
	"net/http"

	"github.com/quizverse/quizverse/internal/users/service"
	"github.com/quizverse/quizverse/pkg/httpx"
)

type AccountHandler struct {
	AuthService *service.AuthService
	UserService *service.UserService
}

type registerRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type loginRequest struct {
	UsernameOrEmail string `json:"username_or_email" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// HandleRegister creates an account and mails a verify OTP.
//
//	@Summary		Register
//	@Description	Creates an unverified account with the Student role and emails a 6 digit OTP valid for 5 minutes.
//	@Tags			Account
//	@Accept			json,x-www-form-urlencoded
//	@Produce		json
//	@Param			body	body		usersdk.RegisterRequest	true	"New account"
//	@Success		201		{object}	usersdk.UserResponse
//	@Failure		400		{object}	usersdk.ErrorResponse	"Duplicate username or email, weak password"
//	@Failure		500		{object}	usersdk.ErrorResponse
//	@Router			/register/ [post].
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.Bind(r, &req); err != nil {
		writeError(w, r, err, 0)
		return
	}

	u, err := h.AuthService.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err, 0)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(u))
}

// HandleLogin signs in by username or email.
//
//	@Summary		Login
//	@Description	Returns an access and refresh token pair. Every failure answers "Invalid credentials".
//	@Tags			Account
//	@Accept			json,x-www-form-urlencoded
//	@Produce		json
//	@Param			body	body		usersdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	usersdk.TokenResponse
//	@Failure		400		{object}	usersdk.ErrorResponse	"Invalid credentials"
//	@Router			/login/ [post].
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Bind(r, &req); err != nil {
		writeError(w, r, err, 0)
		return
	}

	pair, err := h.AuthService.Login(r.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		writeError(w, r, err, 0)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTokenResponse(pair))
}

// HandleLogout deletes the session bound to the presented access token.
//
//	@Summary		Logout
//	@Description	Ends the session so its refresh token stops working. The access token stays valid until it expires.
//	@Tags			Account
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	usersdk.MessageResponse
//	@Failure		401	{object}	usersdk.ErrorResponse
//	@Router			/logout/ [post].
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.AuthService.Logout(ctx, httpx.UserID(ctx), httpx.AccessToken(ctx)); err != nil {
		writeError(w, r, err, 0)
		return
	}
	writeMessage(w, "Logout successful")
}

// HandleRefresh issues a new access token for a refresh token held by the
// caller.
//
//	@Summary		Get access token
//	@Description	Signs a new access token and rebinds the session to it. The refresh token must belong to the bearer and is returned unchanged.
//	@Tags			Account
//	@Security		BearerAuth
//	@Accept			json,x-www-form-urlencoded
//	@Produce		json
//	@Param			body	body		usersdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	usersdk.TokenResponse
//	@Failure		400		{object}	usersdk.ErrorResponse	"Token is invalid or expired"
//	@Failure		401		{object}	usersdk.ErrorResponse
//	@Router			/get-access-token/ [post].
func (h *AccountHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.Bind(r, &req); err != nil {
		writeError(w, r, err, 0)
		return
	}

	pair, err := h.AuthService.RefreshAccess(r.Context(), httpx.UserID(r.Context()), req.RefreshToken)
	if err != nil {
		writeError(w, r, err, 0)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTokenResponse(pair))
}
