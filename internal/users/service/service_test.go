package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/quizverse/quizverse/internal/users/domain"
	"github.com/quizverse/quizverse/internal/users/notify"
	"github.com/quizverse/quizverse/internal/users/store/drivers/sqlite"
	"github.com/quizverse/quizverse/pkg/cryptox"
	"github.com/quizverse/quizverse/pkg/idx"
	"github.com/quizverse/quizverse/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "quizverse-test"
	goodPassword = "Str0ng!Pass"
	newPassword  = "N3w!Passw0rd"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	auth  *AuthService
	users *UserService
	store *sqlite.Store
	sent  *notify.Recorder
	clock *fakeClock
}

var testArgon2 = cryptox.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, KeyLength: 32, SaltLength: 16}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clk := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer, Now: clk.Now})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.AdminEmails = []string{"dean@example.edu"}
	for _, m := range mutate {
		m(&cfg)
	}

	rec := &notify.Recorder{}
	codes := &CodeIssuer{
		Codes:               st.Codes(),
		Digits:              cfg.CodeDigits,
		InvalidateOnReissue: cfg.InvalidateOnReissue,
		Now:                 clk.Now,
	}
	tokens := &TokenService{
		KeyManager: km,
		Store:      st,
		Config:     DefaultTokenConfig(testIssuer),
		Now:        clk.Now,
	}

	return &testEnv{
		auth: &AuthService{
			Config: cfg,
			Store:  st,
			Codes:  codes,
			Tokens: tokens,
			Hasher: cryptox.NewPasswordHasher("test-pepper", testArgon2),
			Sender: rec,
			Now:    clk.Now,
		},
		users: &UserService{Store: st},
		store: st,
		sent:  rec,
		clock: clk,
	}
}

var otpPattern = regexp.MustCompile(`Your OTP is (\d+)\.`)

func (e *testEnv) lastOTP(t *testing.T, email string) string {
	t.Helper()
	msg, ok := e.sent.Last(email)
	require.True(t, ok, "no mail sent to %s", email)
	m := otpPattern.FindStringSubmatch(msg.Body)
	require.Len(t, m, 2, "no otp in %q", msg.Body)
	return m[1]
}

func (e *testEnv) register(t *testing.T, username, email string) domain.User {
	t.Helper()
	u, err := e.auth.Register(context.Background(), RegisterInput{Username: username, Email: email, Password: goodPassword})
	require.NoError(t, err)
	return u
}

func requireKind(t *testing.T, err error, kind Kind, detail string) {
	t.Helper()
	require.Error(t, err)
	var e *Error
	require.True(t, errors.As(err, &e), "want *Error, got %v", err)
	require.Equal(t, kind, e.Kind, e.Detail)
	if detail != "" {
		require.Equal(t, detail, e.Detail)
	}
}

func TestPasswordPolicy(t *testing.T) {
	t.Parallel()
	p := DefaultPasswordPolicy()

	for _, weak := range []string{"abc", "alllowercase1!", "ALLUPPER1!", "NoDigits!!", "NoSpecial1", "Sh0rt!", ""} {
		t.Run("rejects "+weak, func(t *testing.T) {
			requireKind(t, p.Check(weak, "password"), KindValidation, p.Message())
		})
	}

	for _, ok := range []string{goodPassword, "Aa1!aaaa", "Ünïcode1#"} {
		require.NoError(t, p.Check(ok, "password"), ok)
	}

	t.Run("extra pattern", func(t *testing.T) {
		strict := PasswordPolicy{MinLength: 10, Pattern: regexp.MustCompile(`^[[:ascii:]]+$`)}
		require.Error(t, strict.Check("Aa1!aaaa", "password"), "too short for 10")
		require.Error(t, strict.Check("Ünïcode1#xx", "password"), "not ascii")
		require.NoError(t, strict.Check("Aa1!aaaaaa", "password"))
		require.Contains(t, strict.Message(), "at least 10 characters")
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	u := env.register(t, "alice", "Alice@Example.edu")
	require.Equal(t, "alice@example.edu", u.Email)
	require.False(t, u.IsVerified)
	require.Equal(t, []string{domain.RoleStudent}, u.Roles)
	require.NotEqual(t, goodPassword, u.PasswordHash)

	msg, ok := env.sent.Last("alice@example.edu")
	require.True(t, ok)
	require.Equal(t, "Email Verification", msg.Subject)
	require.Regexp(t, `^Your OTP is \d{6}\. Please verify your email\.$`, msg.Body)

	t.Run("duplicate username", func(t *testing.T) {
		_, err := env.auth.Register(ctx, RegisterInput{Username: "alice", Email: "other@example.edu", Password: goodPassword})
		requireKind(t, err, KindValidation, MsgUsernameExists)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := env.auth.Register(ctx, RegisterInput{Username: "alice2", Email: "ALICE@example.edu", Password: goodPassword})
		requireKind(t, err, KindValidation, MsgEmailExists)
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := env.auth.Register(ctx, RegisterInput{Username: "bob", Email: "bob@example.edu", Password: "NoSpecial1"})
		requireKind(t, err, KindValidation, "")
		_, found, err := env.store.Users().FindUserByUsername(ctx, "bob")
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("admin email gets admin", func(t *testing.T) {
		dean := env.register(t, "dean", "dean@example.edu")
		require.Equal(t, []string{domain.RoleAdmin, domain.RoleStudent}, dean.Roles)
	})

	t.Run("mail failure is unexpected", func(t *testing.T) {
		env.sent.SetErr(errors.New("relay down"))
		defer env.sent.SetErr(nil)

		_, err := env.auth.Register(ctx, RegisterInput{Username: "carol", Email: "carol@example.edu", Password: goodPassword})
		require.Error(t, err)
		require.Zero(t, KindOf(err))
	})
}

func TestVerifyEmailEndToEnd(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.register(t, "dave", "dave@example.edu")

	_, err := env.auth.Login(ctx, "dave", goodPassword)
	require.NoError(t, err, "unverified users can sign in")

	env.clock.Advance(4 * time.Minute)
	require.NoError(t, env.auth.VerifyEmail(ctx, u.ID, env.lastOTP(t, u.Email)))

	got, err := env.users.Get(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.IsVerified)

	requireKind(t, env.auth.SendVerification(ctx, u.ID), KindState, MsgAlreadyVerified)
}

func TestVerifyEmailFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("expired then gone", func(t *testing.T) {
		env := newTestEnv(t)
		u := env.register(t, "erin", "erin@example.edu")
		otp := env.lastOTP(t, u.Email)

		env.clock.Advance(5*time.Minute + time.Second)
		requireKind(t, env.auth.VerifyEmail(ctx, u.ID, otp), KindExpired, MsgOTPExpired)
		requireKind(t, env.auth.VerifyEmail(ctx, u.ID, otp), KindNotFound, MsgNoOTP)
	})

	t.Run("single use", func(t *testing.T) {
		env := newTestEnv(t)
		u := env.register(t, "frank", "frank@example.edu")
		otp := env.lastOTP(t, u.Email)

		require.NoError(t, env.auth.VerifyEmail(ctx, u.ID, otp))
		requireKind(t, env.auth.VerifyEmail(ctx, u.ID, otp), KindNotFound, MsgNoOTP)
	})

	t.Run("wrong code", func(t *testing.T) {
		env := newTestEnv(t)
		u := env.register(t, "gina", "gina@example.edu")
		otp := env.lastOTP(t, u.Email)
		wrong := "000000"
		if otp == wrong {
			wrong = "111111"
		}
		requireKind(t, env.auth.VerifyEmail(ctx, u.ID, wrong), KindNotFound, MsgNoOTP)
	})

	t.Run("forgot code on verify", func(t *testing.T) {
		env := newTestEnv(t)
		u := env.register(t, "hank", "hank@example.edu")
		require.NoError(t, env.auth.ForgotPassword(ctx, u.Email))
		forgot := env.lastOTP(t, u.Email)

		requireKind(t, env.auth.VerifyEmail(ctx, u.ID, forgot), KindTypeMismatch, MsgInvalidOTPType)

		// The forgot code survives the mismatch.
		_, err := env.auth.VerifyForgotCode(ctx, forgot, "")
		require.NoError(t, err)
	})

	t.Run("missing user", func(t *testing.T) {
		env := newTestEnv(t)
		requireKind(t, env.auth.VerifyEmail(ctx, "nobody", "123456"), KindNotFound, MsgUserNotFound)
	})
}

func TestReissue(t *testing.T) {
	ctx := context.Background()

	t.Run("invalidate on reissue", func(t *testing.T) {
		env := newTestEnv(t)
		u := env.register(t, "ivan", "ivan@example.edu")
		first := env.lastOTP(t, u.Email)

		env.clock.Advance(time.Second)
		require.NoError(t, env.auth.SendVerification(ctx, u.ID))
		second := env.lastOTP(t, u.Email)

		if first != second {
			requireKind(t, env.auth.VerifyEmail(ctx, u.ID, first), KindNotFound, MsgNoOTP)
		}
		require.NoError(t, env.auth.VerifyEmail(ctx, u.ID, second))
	})

	t.Run("keep earlier codes", func(t *testing.T) {
		env := newTestEnv(t, func(c *Config) { c.InvalidateOnReissue = false })
		u := env.register(t, "judy", "judy@example.edu")
		first := env.lastOTP(t, u.Email)

		env.clock.Advance(time.Second)
		require.NoError(t, env.auth.SendVerification(ctx, u.ID))
		second := env.lastOTP(t, u.Email)

		require.NoError(t, env.auth.VerifyEmail(ctx, u.ID, first), "earlier code still works")
		if first != second {
			_, found, err := env.store.Codes().FindCode(ctx, u.ID, cryptox.FingerprintToken(second), domain.CodeVerify)
			require.NoError(t, err)
			require.True(t, found, "later code was not touched")
		}
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.register(t, "kate", "kate@example.edu")

	for _, ident := range []string{"kate", "kate@example.edu", " KATE@example.edu "} {
		pair, err := env.auth.Login(ctx, ident, goodPassword)
		require.NoError(t, err, ident)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)
		require.Equal(t, "Bearer", pair.TokenType)

		claims, err := env.auth.Tokens.Verify(pair.AccessToken, jwtx.KindAccess)
		require.NoError(t, err)
		require.Equal(t, u.ID, claims.Subject)
		require.Equal(t, []string{domain.RoleStudent}, claims.Roles)
	}

	var failures []error
	for _, c := range [][2]string{
		{"kate", "Wr0ng!Pass"},
		{"kate@example.edu", "Wr0ng!Pass"},
		{"nobody", goodPassword},
		{"nobody@example.edu", goodPassword},
		{"", ""},
	} {
		_, err := env.auth.Login(ctx, c[0], c[1])
		requireKind(t, err, KindCredential, MsgInvalidCredentials)
		failures = append(failures, err)
	}
	for _, err := range failures[1:] {
		require.Equal(t, failures[0].Error(), err.Error())
	}
}

func TestRefreshAndLogout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.register(t, "liam", "liam@example.edu")

	pair, err := env.auth.Login(ctx, "liam", goodPassword)
	require.NoError(t, err)

	t.Run("access token is not a refresh token", func(t *testing.T) {
		_, err := env.auth.RefreshAccess(ctx, u.ID, pair.AccessToken)
		requireKind(t, err, KindCredential, MsgTokenInvalidOrExpire)
	})

	env.clock.Advance(time.Minute)
	refreshed, err := env.auth.RefreshAccess(ctx, u.ID, pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, pair.RefreshToken, refreshed.RefreshToken, "refresh token is not rotated")
	require.NotEqual(t, pair.AccessToken, refreshed.AccessToken)

	sess, found, err := env.store.Sessions().FindSessionByRefresh(ctx, cryptox.FingerprintToken(pair.RefreshToken))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, cryptox.FingerprintToken(refreshed.AccessToken), sess.AccessDigest)

	// The stale access token no longer names the session.
	require.NoError(t, env.auth.Logout(ctx, u.ID, pair.AccessToken))
	_, found, err = env.store.Sessions().FindSessionByRefresh(ctx, cryptox.FingerprintToken(pair.RefreshToken))
	require.NoError(t, err)
	require.True(t, found)

	require.NoError(t, env.auth.Logout(ctx, u.ID, refreshed.AccessToken))
	_, err = env.auth.RefreshAccess(ctx, u.ID, pair.RefreshToken)
	requireKind(t, err, KindCredential, MsgTokenInvalidOrExpire)

	// Access tokens are stateless and outlive logout until exp.
	_, err = env.auth.Tokens.Verify(refreshed.AccessToken, jwtx.KindAccess)
	require.NoError(t, err)
}

func TestRefreshExpired(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.register(t, "mona", "mona@example.edu")

	pair, err := env.auth.Login(ctx, "mona", goodPassword)
	require.NoError(t, err)

	env.clock.Advance(jwtx.DefaultRefreshTokenTTL + time.Minute)
	_, err = env.auth.RefreshAccess(ctx, u.ID, pair.RefreshToken)
	requireKind(t, err, KindCredential, MsgTokenInvalidOrExpire)
}

func TestRefreshRejectsAnotherUsersToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.register(t, "alice", "alice@example.edu")
	bob := env.register(t, "bob", "bob@example.edu")

	bobPair, err := env.auth.Login(ctx, "bob", goodPassword)
	require.NoError(t, err)

	_, err = env.auth.RefreshAccess(ctx, alice.ID, bobPair.RefreshToken)
	requireKind(t, err, KindCredential, MsgTokenInvalidOrExpire)

	// The rejected attempt leaves bob's session intact.
	refreshed, err := env.auth.RefreshAccess(ctx, bob.ID, bobPair.RefreshToken)
	require.NoError(t, err)
	claims, err := env.auth.Tokens.Verify(refreshed.AccessToken, jwtx.KindAccess)
	require.NoError(t, err)
	require.Equal(t, bob.ID, claims.Subject)
}

func TestRefreshPicksUpNewRoles(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.register(t, "nick", "nick@example.edu")

	pair, err := env.auth.Login(ctx, "nick", goodPassword)
	require.NoError(t, err)

	_, err = env.users.AssignRole(ctx, []string{domain.RoleAdmin}, u.ID, domain.RoleFaculty)
	require.NoError(t, err)

	refreshed, err := env.auth.RefreshAccess(ctx, u.ID, pair.RefreshToken)
	require.NoError(t, err)
	claims, err := env.auth.Tokens.Verify(refreshed.AccessToken, jwtx.KindAccess)
	require.NoError(t, err)
	require.Equal(t, []string{domain.RoleFaculty, domain.RoleStudent}, claims.Roles)
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.register(t, "olga", "olga@example.edu")

	requireKind(t, env.auth.ResetPassword(ctx, u.ID, "Wr0ng!Pass", newPassword), KindCredential, MsgInvalidCurrentPass)

	requireKind(t, env.auth.ResetPassword(ctx, u.ID, goodPassword, goodPassword), KindState, MsgPasswordNotChanged)

	requireKind(t, env.auth.ResetPassword(ctx, u.ID, goodPassword, "weak"), KindValidation, "")

	require.NoError(t, env.auth.ResetPassword(ctx, u.ID, goodPassword, newPassword))
	_, err := env.auth.Login(ctx, "olga", newPassword)
	require.NoError(t, err)
	_, err = env.auth.Login(ctx, "olga", goodPassword)
	requireKind(t, err, KindCredential, MsgInvalidCredentials)

	requireKind(t, env.auth.ResetPassword(ctx, u.ID, newPassword, newPassword), KindState, MsgPasswordNotChanged)
	requireKind(t, env.auth.ResetPassword(ctx, "nobody", goodPassword, newPassword), KindNotFound, MsgUserNotFound)
}

func TestForgotPasswordEndToEnd(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.register(t, "pete", "pete@example.edu")

	require.NoError(t, env.auth.ForgotPassword(ctx, "PETE@example.edu"))
	msg, _ := env.sent.Last(u.Email)
	require.Equal(t, "Forgot Password", msg.Subject)
	require.Regexp(t, `^Your OTP is \d{6}\. Please reset your password\.$`, msg.Body)
	otp := env.lastOTP(t, u.Email)

	env.clock.Advance(90 * time.Second)
	token, err := env.auth.VerifyForgotCode(ctx, otp, "")
	require.NoError(t, err)
	require.Len(t, token, 54)

	_, err = env.auth.VerifyForgotCode(ctx, otp, "")
	requireKind(t, err, KindNotFound, MsgInvalidToken)

	env.clock.Advance(9 * time.Minute)
	require.NoError(t, env.auth.ResetForgottenPassword(ctx, token, newPassword))
	requireKind(t, env.auth.ResetForgottenPassword(ctx, token, newPassword), KindNotFound, MsgInvalidToken)

	_, err = env.auth.Login(ctx, "pete", newPassword)
	require.NoError(t, err)
	_, err = env.auth.Login(ctx, "pete", goodPassword)
	requireKind(t, err, KindCredential, MsgInvalidCredentials)
}

func TestForgotPasswordFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email", func(t *testing.T) {
		env := newTestEnv(t)
		requireKind(t, env.auth.ForgotPassword(ctx, "ghost@example.edu"), KindNotFound, MsgEmailNotFound)
	})

	t.Run("otp expires after two minutes", func(t *testing.T) {
		env := newTestEnv(t)
		u := env.register(t, "quinn", "quinn@example.edu")
		require.NoError(t, env.auth.ForgotPassword(ctx, u.Email))
		otp := env.lastOTP(t, u.Email)

		env.clock.Advance(2*time.Minute + time.Second)
		_, err := env.auth.VerifyForgotCode(ctx, otp, u.Email)
		requireKind(t, err, KindExpired, MsgOTPExpired)
	})

	t.Run("verify otp on forgot", func(t *testing.T) {
		env := newTestEnv(t)
		u := env.register(t, "rita", "rita@example.edu")
		_, err := env.auth.VerifyForgotCode(ctx, env.lastOTP(t, u.Email), u.Email)
		requireKind(t, err, KindTypeMismatch, MsgInvalidOTPType)
	})

	t.Run("newer verify code with the same value does not shadow it", func(t *testing.T) {
		env := newTestEnv(t)
		bob := env.register(t, "bob", "bob@example.edu")
		alice := env.register(t, "alice", "alice@example.edu")

		const value = "424242"
		now := env.clock.Now()
		plant := func(userID string, kind domain.CodeKind, at time.Time) {
			require.NoError(t, env.store.Codes().CreateCode(ctx, domain.OneTimeCode{
				ID:        idx.NewAt(at).String(),
				UserID:    userID,
				Kind:      kind,
				Digest:    cryptox.FingerprintToken(value),
				CreatedAt: at,
			}))
		}
		plant(bob.ID, domain.CodeForgot, now)
		plant(alice.ID, domain.CodeVerify, now.Add(time.Second))

		env.clock.Advance(2 * time.Second)
		_, err := env.auth.VerifyForgotCode(ctx, value, "")
		require.NoError(t, err)

		// Alice's code was not touched.
		require.NoError(t, env.auth.VerifyEmail(ctx, alice.ID, value))
	})

	t.Run("email scopes the lookup", func(t *testing.T) {
		env := newTestEnv(t)
		u := env.register(t, "sam", "sam@example.edu")
		other := env.register(t, "tess", "tess@example.edu")
		require.NoError(t, env.auth.ForgotPassword(ctx, u.Email))
		otp := env.lastOTP(t, u.Email)

		_, err := env.auth.VerifyForgotCode(ctx, otp, other.Email)
		requireKind(t, err, KindNotFound, MsgInvalidToken)
		_, err = env.auth.VerifyForgotCode(ctx, otp, "ghost@example.edu")
		requireKind(t, err, KindNotFound, MsgInvalidToken)

		_, err = env.auth.VerifyForgotCode(ctx, otp, u.Email)
		require.NoError(t, err)
	})

	t.Run("reset token expires after ten minutes", func(t *testing.T) {
		env := newTestEnv(t)
		u := env.register(t, "uma", "uma@example.edu")
		require.NoError(t, env.auth.ForgotPassword(ctx, u.Email))
		token, err := env.auth.VerifyForgotCode(ctx, env.lastOTP(t, u.Email), "")
		require.NoError(t, err)

		env.clock.Advance(10*time.Minute + time.Second)
		requireKind(t, env.auth.ResetForgottenPassword(ctx, token, newPassword), KindExpired, MsgOTPExpired)
	})

	t.Run("weak password keeps the token", func(t *testing.T) {
		env := newTestEnv(t)
		u := env.register(t, "vic", "vic@example.edu")
		require.NoError(t, env.auth.ForgotPassword(ctx, u.Email))
		token, err := env.auth.VerifyForgotCode(ctx, env.lastOTP(t, u.Email), "")
		require.NoError(t, err)

		requireKind(t, env.auth.ResetForgottenPassword(ctx, token, "weak"), KindValidation, "")
		require.NoError(t, env.auth.ResetForgottenPassword(ctx, token, newPassword))
	})

	t.Run("garbage token", func(t *testing.T) {
		env := newTestEnv(t)
		requireKind(t, env.auth.ResetForgottenPassword(ctx, "not-a-token", newPassword), KindNotFound, MsgInvalidToken)
	})
}

func TestUserService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	student := env.register(t, "walt", "walt@example.edu")
	env.register(t, "dean", "dean@example.edu")

	_, err := env.users.List(ctx, []string{domain.RoleStudent})
	requireKind(t, err, KindForbidden, MsgForbidden)

	users, err := env.users.List(ctx, []string{domain.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, users, 2)

	_, err = env.users.Get(ctx, "missing")
	requireKind(t, err, KindNotFound, MsgUserNotFound)

	_, err = env.users.AssignRole(ctx, []string{domain.RoleStudent}, student.ID, domain.RoleAdmin)
	requireKind(t, err, KindForbidden, "")

	_, err = env.users.AssignRole(ctx, []string{domain.RoleAdmin}, student.ID, "Janitor")
	requireKind(t, err, KindValidation, MsgUnknownRole)

	got, err := env.users.AssignRole(ctx, []string{domain.RoleAdmin}, student.ID, domain.RoleFaculty)
	require.NoError(t, err)
	require.Equal(t, []string{domain.RoleFaculty, domain.RoleStudent}, got.Roles)

	roles, err := env.users.Roles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 3)
}

func TestCodeIssuerRejectsUnknownKind(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.auth.Codes.Issue(context.Background(), "u1", domain.CodeKind("bogus"))
	require.Error(t, err)
}

func TestErrorIs(t *testing.T) {
	err := ExpiredError(MsgOTPExpired)
	require.ErrorIs(t, err, &Error{Kind: KindExpired})
	require.ErrorIs(t, err, &Error{Kind: KindExpired, Detail: MsgOTPExpired})
	require.NotErrorIs(t, err, &Error{Kind: KindNotFound})
	require.Equal(t, "expired: OTP expired", err.Error())
	require.Equal(t, "validation: x (password)", ValidationError("x", "password").Error())
}
