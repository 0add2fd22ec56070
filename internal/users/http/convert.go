package http

import (
	"github.com/quizverse/quizverse/internal/users/domain"
	"github.com/quizverse/quizverse/pkg/usersdk"
)

func toUserResponse(u domain.User) usersdk.UserResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return usersdk.UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		IsVerified: u.IsVerified,
		Roles:      roles,
		CreatedAt:  u.CreatedAt,
	}
}

func toTokenResponse(p domain.TokenPair) usersdk.TokenResponse {
	return usersdk.TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    p.ExpiresIn,
	}
}
