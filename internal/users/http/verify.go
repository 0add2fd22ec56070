package http

import (
	"net/http"

	"github.com/quizverse/quizverse/internal/users/service"
	"github.com/quizverse/quizverse/pkg/httpx"
)

type VerifyHandler struct {
	AuthService *service.AuthService
}

// HandleSend mails a new verify OTP to the caller.
//
//	@Summary		Send verification email
//	@Tags			Verification
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	usersdk.MessageResponse
//	@Failure		400	{object}	usersdk.ErrorResponse	"Email already verified"
//	@Failure		401	{object}	usersdk.ErrorResponse
//	@Router			/verify/ [post].
func (h *VerifyHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.AuthService.SendVerification(ctx, httpx.UserID(ctx)); err != nil {
		writeError(w, r, err, 0)
		return
	}
	writeMessage(w, "Verification email sent")
}

// HandleVerify redeems a verify OTP.
//
//	@Summary		Verify email
//	@Tags			Verification
//	@Security		BearerAuth
//	@Produce		json
//	@Param			otp	path		string	true	"6 digit OTP"
//	@Success		200	{object}	usersdk.MessageResponse
//	@Failure		400	{object}	usersdk.ErrorResponse	"No otp found, OTP expired, Invalid otp type"
//	@Failure		401	{object}	usersdk.ErrorResponse
//	@Router			/verify/{otp}/ [post].
func (h *VerifyHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.AuthService.VerifyEmail(ctx, httpx.UserID(ctx), r.PathValue("otp")); err != nil {
		writeError(w, r, err, 0)
		return
	}
	writeMessage(w, "Email verified")
}
