package http

import (
	"errors"
	"net/http"

	"github.com/quizverse/quizverse/internal/users/service"
	"github.com/quizverse/quizverse/pkg/httpx"
	"github.com/quizverse/quizverse/pkg/slogx"
	"github.com/quizverse/quizverse/pkg/usersdk"
)

const msgInternal = "Internal server error"

// writeError maps err to a status and an ErrorResponse body. Domain errors
// are 400 except Forbidden (403) and NotFound when notFound is set.
// Anything else is logged and hidden behind a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFound int) {
	var verr *httpx.ValidationError
	if errors.As(err, &verr) {
		httpx.WriteJSON(w, http.StatusBadRequest, usersdk.ErrorResponse{
			Details: verr.Error(),
			Field:   verr.FirstField(),
		})
		return
	}
	if errors.Is(err, httpx.ErrBadBody) {
		httpx.WriteJSON(w, http.StatusBadRequest, usersdk.ErrorResponse{Details: httpx.ErrBadBody.Error()})
		return
	}

	var e *service.Error
	if !errors.As(err, &e) {
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, usersdk.ErrorResponse{Details: msgInternal})
		return
	}

	status := http.StatusBadRequest
	switch {
	case e.Kind == service.KindForbidden:
		status = http.StatusForbidden
	case e.Kind == service.KindNotFound && notFound != 0:
		status = notFound
	}
	httpx.WriteJSON(w, status, usersdk.ErrorResponse{Details: e.Detail, Field: e.Field})
}

func writeMessage(w http.ResponseWriter, msg string) {
	httpx.WriteJSON(w, http.StatusOK, usersdk.MessageResponse{Message: msg})
}
