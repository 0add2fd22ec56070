package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/quizverse/quizverse/internal/users/domain"
	"github.com/quizverse/quizverse/internal/users/store"
)

// RequireRole fails with a Forbidden error unless have contains want.
// Handlers call it first thing, before touching any data.
func RequireRole(have []string, want string) error {
	if slices.Contains(have, want) {
		return nil
	}
	return ForbiddenError(MsgForbidden)
}

type UserService struct {
	Store store.Store
}

// Get returns the user or a NotFound error.
func (s *UserService) Get(ctx context.Context, userID string) (domain.User, error) {
	u, found, err := s.Store.Users().FindUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	if !found {
		return domain.User{}, NotFoundError(MsgUserNotFound, "")
	}
	return u, nil
}

// List returns every user. Admin only.
func (s *UserService) List(ctx context.Context, callerRoles []string) ([]domain.User, error) {
	if err := RequireRole(callerRoles, domain.RoleAdmin); err != nil {
		return nil, err
	}

	users, err := s.Store.Users().ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// AssignRole grants role to userID. Admin only.
func (s *UserService) AssignRole(ctx context.Context, callerRoles []string, userID, role string) (domain.User, error) {
	if err := RequireRole(callerRoles, domain.RoleAdmin); err != nil {
		return domain.User{}, err
	}

	if _, err := s.Get(ctx, userID); err != nil {
		return domain.User{}, err
	}

	if err := s.Store.Roles().AssignRole(ctx, userID, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ValidationError(MsgUnknownRole, "role")
		}
		return domain.User{}, fmt.Errorf("assign role: %w", err)
	}
	return s.Get(ctx, userID)
}

// Roles lists the roles that can be granted.
func (s *UserService) Roles(ctx context.Context) ([]domain.Role, error) {
	roles, err := s.Store.Roles().ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}
