package http

import (
	"net/http"

	"github.com/quizverse/quizverse/internal/users/service"
	"github.com/quizverse/quizverse/pkg/httpx"
	"github.com/quizverse/quizverse/pkg/usersdk"
)

type PasswordHandler struct {
	AuthService *service.AuthService
}

type resetPasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,max=128"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyForgotRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
}

type resetForgotRequest struct {
	NewPassword string `json:"new_password" validate:"required,max=128"`
}

// HandleReset changes the caller's password.
//
//	@Summary		Reset password
//	@Tags			Password
//	@Security		BearerAuth
//	@Accept			json,x-www-form-urlencoded
//	@Produce		json
//	@Param			body	body		usersdk.ResetPasswordRequest	true	"Current and new password"
//	@Success		200		{object}	usersdk.MessageResponse
//	@Failure		400		{object}	usersdk.ErrorResponse	"Invalid current password, New password must be different"
//	@Failure		401		{object}	usersdk.ErrorResponse
//	@Router			/reset-password/ [post].
func (h *PasswordHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := httpx.Bind(r, &req); err != nil {
		writeError(w, r, err, 0)
		return
	}

	ctx := r.Context()
	if err := h.AuthService.ResetPassword(ctx, httpx.UserID(ctx), req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err, 0)
		return
	}
	writeMessage(w, "Reset password successful")
}

// HandleForgot mails a forgot OTP.
//
//	@Summary		Forgot password
//	@Description	Emails a 6 digit OTP valid for 2 minutes.
//	@Tags			Password
//	@Accept			json,x-www-form-urlencoded
//	@Produce		json
//	@Param			body	body		usersdk.ForgotPasswordRequest	true	"Account email"
//	@Success		200		{object}	usersdk.MessageResponse
//	@Failure		400		{object}	usersdk.ErrorResponse	"Email not found"
//	@Router			/forgot-password/ [post].
func (h *PasswordHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := httpx.Bind(r, &req); err != nil {
		writeError(w, r, err, 0)
		return
	}

	if err := h.AuthService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, r, err, 0)
		return
	}
	writeMessage(w, "Email sent")
}

// HandleVerifyForgot trades a forgot OTP for a reset token.
//
//	@Summary		Verify forgot password OTP
//	@Description	Returns a reset token valid for 10 minutes. The body is optional; an email narrows the OTP lookup to that account.
//	@Tags			Password
//	@Accept			json,x-www-form-urlencoded
//	@Produce		json
//	@Param			otp		path		string						true	"6 digit OTP"
//	@Param			body	body		usersdk.VerifyForgotRequest	false	"Account email"
//	@Success		200		{object}	usersdk.ResetTokenResponse
//	@Failure		400		{object}	usersdk.ErrorResponse	"Invalid token, OTP expired, Invalid otp type"
//	@Router			/forgot-password/{otp}/ [post].
func (h *PasswordHandler) HandleVerifyForgot(w http.ResponseWriter, r *http.Request) {
	var req verifyForgotRequest
	if r.ContentLength != 0 {
		if err := httpx.Bind(r, &req); err != nil {
			writeError(w, r, err, 0)
			return
		}
	}

	token, err := h.AuthService.VerifyForgotCode(r.Context(), r.PathValue("otp"), req.Email)
	if err != nil {
		writeError(w, r, err, 0)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, usersdk.ResetTokenResponse{
		Message: "OTP verified successfully",
		Token:   token,
	})
}

// HandleResetForgot sets a new password with a reset token.
//
//	@Summary		Reset forgotten password
//	@Tags			Password
//	@Accept			json,x-www-form-urlencoded
//	@Produce		json
//	@Param			token	path		string						true	"Reset token"
//	@Param			body	body		usersdk.ResetForgotRequest	true	"New password"
//	@Success		200		{object}	usersdk.MessageResponse
//	@Failure		400		{object}	usersdk.ErrorResponse	"Invalid token, OTP expired, weak password"
//	@Router			/reset-forgot-password/{token}/ [post].
func (h *PasswordHandler) HandleResetForgot(w http.ResponseWriter, r *http.Request) {
	var req resetForgotRequest
	if err := httpx.Bind(r, &req); err != nil {
		writeError(w, r, err, 0)
		return
	}

	if err := h.AuthService.ResetForgottenPassword(r.Context(), r.PathValue("token"), req.NewPassword); err != nil {
		writeError(w, r, err, 0)
		return
	}
	writeMessage(w, "Password reset successful")
}
