package http

import (
	"net/http"

	"github.com/quizverse/quizverse/internal/users/domain"
	"github.com/quizverse/quizverse/internal/users/service"
	"github.com/quizverse/quizverse/pkg/httpx"
	"github.com/quizverse/quizverse/pkg/usersdk"
)

type UsersHandler struct {
	UserService *service.UserService
}

type assignRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// HandleMe returns the caller's account.
//
//	@Summary		Current user
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	usersdk.UserResponse
//	@Failure		401	{object}	usersdk.ErrorResponse
//	@Failure		404	{object}	usersdk.ErrorResponse	"User not found"
//	@Router			/user [get].
func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := h.UserService.Get(ctx, httpx.UserID(ctx))
	if err != nil {
		writeError(w, r, err, http.StatusNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleList returns every account.
//
//	@Summary		List users
//	@Description	Admin only. Answers 201.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		201	{array}		usersdk.UserResponse
//	@Failure		401	{object}	usersdk.ErrorResponse
//	@Failure		403	{object}	usersdk.ErrorResponse
//	@Router			/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := service.RequireRole(httpx.Roles(ctx), domain.RoleAdmin); err != nil {
		writeError(w, r, err, 0)
		return
	}

	users, err := h.UserService.List(ctx, httpx.Roles(ctx))
	if err != nil {
		writeError(w, r, err, 0)
		return
	}

	out := make([]usersdk.UserResponse, len(users))
	for i, u := range users {
		out[i] = toUserResponse(u)
	}
	httpx.WriteJSON(w, http.StatusCreated, out)
}

// HandleRoles lists the grantable roles.
//
//	@Summary		List roles
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		usersdk.RoleResponse
//	@Failure		401	{object}	usersdk.ErrorResponse
//	@Router			/roles [get].
func (h *UsersHandler) HandleRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.UserService.Roles(r.Context())
	if err != nil {
		writeError(w, r, err, 0)
		return
	}

	out := make([]usersdk.RoleResponse, len(roles))
	for i, role := range roles {
		out[i] = usersdk.RoleResponse{ID: role.ID, Name: role.Name}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleAssignRole grants a role to a user.
//
//	@Summary		Assign role
//	@Description	Admin only. Granting a role the user already has is a no-op.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json,x-www-form-urlencoded
//	@Produce		json
//	@Param			id		path		string						true	"User id"
//	@Param			body	body		usersdk.AssignRoleRequest	true	"Role name"
//	@Success		200		{object}	usersdk.UserResponse
//	@Failure		400		{object}	usersdk.ErrorResponse	"Role not found, User not found"
//	@Failure		401		{object}	usersdk.ErrorResponse
//	@Failure		403		{object}	usersdk.ErrorResponse
//	@Router			/users/{id}/roles/ [post].
func (h *UsersHandler) HandleAssignRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := service.RequireRole(httpx.Roles(ctx), domain.RoleAdmin); err != nil {
		writeError(w, r, err, 0)
		return
	}

	var req assignRoleRequest
	if err := httpx.Bind(r, &req); err != nil {
		writeError(w, r, err, 0)
		return
	}

	u, err := h.UserService.AssignRole(ctx, httpx.Roles(ctx), r.PathValue("id"), req.Role)
	if err != nil {
		writeError(w, r, err, 0)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}
