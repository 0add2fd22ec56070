package users_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quizverse/quizverse/pkg/usersdk"
)

// TestAccountLifecycle walks registration, verification, refresh and logout.
func TestAccountLifecycle(t *testing.T) {
	c := setupUsersContainer(t, nil)
	ctx := t.Context()

	user, session := registerAndLogin(t, c, "alice", "alice@example.edu", userPassword)
	require.False(t, user.IsVerified)
	require.Equal(t, []string{"Student"}, user.Roles)

	t.Run("duplicate registration", func(t *testing.T) {
		_, err := c.Client.Register(ctx, usersdk.RegisterRequest{
			Username: "alice", Email: "other@example.edu", Password: userPassword,
		})
		requireAPIError(t, err, http.StatusBadRequest, "username already exists")
	})

	t.Run("verify email with mailed OTP", func(t *testing.T) {
		otp := c.lastOTP(t, "alice@example.edu")
		require.Len(t, otp, 6)

		requireAPIError(t, session.VerifyEmail(ctx, "000000"), http.StatusBadRequest, "")
		require.NoError(t, session.VerifyEmail(ctx, otp))

		me, err := session.Me(ctx)
		require.NoError(t, err)
		require.True(t, me.IsVerified)

		requireAPIError(t, session.SendVerification(ctx), http.StatusBadRequest, "Email already verified")
	})

	t.Run("login by email with bad password", func(t *testing.T) {
		_, err := c.Client.Login(ctx, "alice@example.edu", "Wrong#Pass1")
		requireAPIError(t, err, http.StatusBadRequest, "Invalid credentials")

		_, err = c.Client.Login(ctx, "nobody", "Wrong#Pass1")
		requireAPIError(t, err, http.StatusBadRequest, "Invalid credentials")
	})

	t.Run("refresh keeps the refresh token", func(t *testing.T) {
		_, refresh := session.Tokens()
		require.NoError(t, session.Refresh(ctx))

		access, sameRefresh := session.Tokens()
		require.Equal(t, refresh, sameRefresh)
		require.NotEmpty(t, access)

		me, err := session.Me(ctx)
		require.NoError(t, err)
		require.Equal(t, "alice", me.Username)
	})

	t.Run("logout ends the session", func(t *testing.T) {
		require.NoError(t, session.Logout(ctx))
		requireAPIError(t, session.Refresh(ctx), http.StatusBadRequest, "")
	})

	t.Run("students cannot list users", func(t *testing.T) {
		other, err := c.Client.Login(ctx, "alice", userPassword)
		require.NoError(t, err)
		_, err = other.ListUsers(ctx)
		requireAPIError(t, err, http.StatusForbidden, "")
	})
}

// TestAdminEndpoints uses an address from ADMIN_EMAILS.
func TestAdminEndpoints(t *testing.T) {
	c := setupUsersContainer(t, nil)
	ctx := t.Context()

	admin, adminSession := registerAndLogin(t, c, "dean", adminEmail, adminPassword)
	require.ElementsMatch(t, []string{"Student", "Admin"}, admin.Roles)

	bob, _ := registerAndLogin(t, c, "bob", "bob@example.edu", userPassword)

	users, err := adminSession.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	roles, err := adminSession.ListRoles(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	require.Contains(t, names, "Faculty")

	updated, err := adminSession.AssignRole(ctx, bob.ID, "Faculty")
	require.NoError(t, err)
	require.Contains(t, updated.Roles, "Faculty")

	_, err = adminSession.AssignRole(ctx, bob.ID, "Janitor")
	requireAPIError(t, err, http.StatusBadRequest, "Role not found")
}

// TestLoginRateLimit checks brute force protection on the login route.
func TestLoginRateLimit(t *testing.T) {
	c := setupUsersContainer(t, map[string]string{
		"RATELIMIT_AUTH_REQUESTS": "3",
		"RATELIMIT_AUTH_BURST":    "3",
	})
	ctx := t.Context()

	for range 3 {
		_, err := c.Client.Login(ctx, "mallory", "Guess#Pass1")
		requireAPIError(t, err, http.StatusBadRequest, "Invalid credentials")
	}

	_, err := c.Client.Login(ctx, "mallory", "Guess#Pass1")
	requireAPIError(t, err, http.StatusTooManyRequests, "")
}
