package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/quizverse/quizverse/internal/users/domain"
	"github.com/quizverse/quizverse/internal/users/notify"
	"github.com/quizverse/quizverse/internal/users/store"
	"github.com/quizverse/quizverse/pkg/cryptox"
	"github.com/quizverse/quizverse/pkg/idx"
	"github.com/quizverse/quizverse/pkg/slogx"
)

const (
	subjectVerify = "Email Verification"
	subjectForgot = "Forgot Password"
)

// AuthService runs the account flows: registration, email verification,
// login and logout, token refresh and both password reset paths.
type AuthService struct {
	Config Config
	Store  store.Store
	Codes  *CodeIssuer
	Tokens *TokenService
	Hasher *cryptox.PasswordHasher
	Sender notify.Sender
	Now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Register creates an unverified user holding the Student role (plus Admin
// for configured addresses) and mails a verify OTP.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (u domain.User, err error) {
	defer func() { observe("register", err) }()
	log := slogx.FromContext(ctx)

	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if username == "" || strings.Contains(username, "@") {
		return domain.User{}, ValidationError("username must not be empty or contain @", "username")
	}

	if _, found, err := s.Store.Users().FindUserByUsername(ctx, username); err != nil {
		return domain.User{}, fmt.Errorf("lookup username: %w", err)
	} else if found {
		return domain.User{}, ValidationError(MsgUsernameExists, "username")
	}
	if _, found, err := s.Store.Users().FindUserByEmail(ctx, email); err != nil {
		return domain.User{}, fmt.Errorf("lookup email: %w", err)
	} else if found {
		return domain.User{}, ValidationError(MsgEmailExists, "email")
	}

	if err := s.Config.Password.Check(in.Password, "password"); err != nil {
		return domain.User{}, err
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	u = domain.User{
		ID:           idx.NewAt(now).String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	roles := []string{domain.RoleStudent}
	if s.Config.isAdminEmail(email) {
		roles = append(roles, domain.RoleAdmin)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			return err
		}
		for _, role := range roles {
			if err := tx.Roles().AssignRole(ctx, u.ID, role); err != nil {
				return fmt.Errorf("assign %s: %w", role, err)
			}
		}
		return nil
	})
	if err != nil {
		// Lost a race with a concurrent registration.
		var conflict *store.ConflictError
		if errors.As(err, &conflict) {
			return domain.User{}, ValidationError(conflict.Field+" already exists", conflict.Field)
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	u, found, err := s.Store.Users().FindUserByID(ctx, u.ID)
	if err != nil || !found {
		return domain.User{}, fmt.Errorf("reload user: %w", errors.Join(err, store.ErrNotFound))
	}
	log.Info("user registered", "user_id", u.ID, "roles", u.Roles)

	if err := s.sendCode(ctx, u, domain.CodeVerify); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// SendVerification mails a fresh verify OTP to an unverified user.
func (s *AuthService) SendVerification(ctx context.Context, userID string) (err error) {
	defer func() { observe("send_verification", err) }()

	u, err := s.requireUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return StateError(MsgAlreadyVerified, "")
	}
	return s.sendCode(ctx, u, domain.CodeVerify)
}

// VerifyEmail redeems the caller's verify OTP and marks the email verified.
func (s *AuthService) VerifyEmail(ctx context.Context, userID, otp string) (err error) {
	defer func() { observe("verify_email", err) }()

	u, err := s.requireUser(ctx, userID)
	if err != nil {
		return err
	}

	res, _, err := s.Codes.Consume(ctx, u.ID, strings.TrimSpace(otp), domain.CodeVerify, s.Config.VerifyCodeTTL)
	if err != nil {
		return err
	}
	if err := codeError(res, MsgNoOTP, "otp"); err != nil {
		return err
	}

	if err := s.Store.Users().MarkVerified(ctx, u.ID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	slogx.FromContext(ctx).Info("email verified", "user_id", u.ID)
	return nil
}

// Login accepts a username or an email. Every failure looks the same.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (pair domain.TokenPair, err error) {
	defer func() { observe("login", err) }()

	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		identifier = normalizeEmail(identifier)
	}

	u, found, err := s.Store.Users().FindUserByLogin(ctx, identifier)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("lookup login: %w", err)
	}
	if !found {
		// Spend the same argon2 time as a real check.
		_ = s.Hasher.Matches(password, s.dummy())
		return domain.TokenPair{}, CredentialError(MsgInvalidCredentials, "")
	}
	if !s.Hasher.Matches(password, u.PasswordHash) {
		slogx.FromContext(ctx).Info("login password mismatch", "user_id", u.ID)
		return domain.TokenPair{}, CredentialError(MsgInvalidCredentials, "")
	}

	return s.Tokens.Issue(ctx, u)
}

// Logout removes the session bound to the caller's access token.
func (s *AuthService) Logout(ctx context.Context, userID, accessToken string) (err error) {
	defer func() { observe("logout", err) }()

	n, err := s.Tokens.Revoke(ctx, userID, accessToken)
	if err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("logout", "user_id", userID, "sessions_removed", n)
	return nil
}

// RefreshAccess exchanges a refresh token for a new access token. The refresh
// token must belong to userID, the caller named by the bearer token.
func (s *AuthService) RefreshAccess(ctx context.Context, userID, refreshToken string) (pair domain.TokenPair, err error) {
	defer func() { observe("refresh", err) }()

	pair, err = s.Tokens.Refresh(ctx, strings.TrimSpace(refreshToken), userID)
	if errors.Is(err, ErrInvalidRefresh) {
		return domain.TokenPair{}, CredentialError(MsgTokenInvalidOrExpire, "refresh_token")
	}
	return pair, err
}

// ResetPassword changes the password of a signed in user.
func (s *AuthService) ResetPassword(ctx context.Context, userID, current, next string) (err error) {
	defer func() { observe("reset_password", err) }()

	u, err := s.requireUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.Hasher.Matches(current, u.PasswordHash) {
		return CredentialError(MsgInvalidCurrentPass, "current_password")
	}
	if s.Hasher.Matches(next, u.PasswordHash) {
		return StateError(MsgPasswordNotChanged, "new_password")
	}
	if err := s.Config.Password.Check(next, "new_password"); err != nil {
		return err
	}
	return s.setPassword(ctx, u.ID, next)
}

// ForgotPassword mails a forgot OTP to a registered address.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (err error) {
	defer func() { observe("forgot_password", err) }()

	u, found, err := s.Store.Users().FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("lookup email: %w", err)
	}
	if !found {
		return NotFoundError(MsgEmailNotFound, "email")
	}
	return s.sendCode(ctx, u, domain.CodeForgot)
}

// VerifyForgotCode redeems a forgot OTP and returns a reset form token. The
// OTP alone identifies the user; email, when given, narrows the lookup.
func (s *AuthService) VerifyForgotCode(ctx context.Context, otp, email string) (token string, err error) {
	defer func() { observe("verify_forgot", err) }()

	userID := ""
	if email = normalizeEmail(email); email != "" {
		u, found, err := s.Store.Users().FindUserByEmail(ctx, email)
		if err != nil {
			return "", fmt.Errorf("lookup email: %w", err)
		}
		if !found {
			return "", NotFoundError(MsgInvalidToken, "otp")
		}
		userID = u.ID
	}

	res, code, err := s.Codes.Consume(ctx, userID, strings.TrimSpace(otp), domain.CodeForgot, s.Config.ForgotCodeTTL)
	if err != nil {
		return "", err
	}
	if err := codeError(res, MsgInvalidToken, "otp"); err != nil {
		return "", err
	}

	token, err = s.Codes.Issue(ctx, code.UserID, domain.CodeReset)
	if err != nil {
		return "", fmt.Errorf("issue reset token: %w", err)
	}
	slogx.FromContext(ctx).Info("forgot otp verified", "user_id", code.UserID)
	return token, nil
}

// ResetForgottenPassword sets a new password using a reset form token.
func (s *AuthService) ResetForgottenPassword(ctx context.Context, token, next string) (err error) {
	defer func() { observe("reset_forgotten", err) }()

	// Check the password first so a typo does not burn the token.
	if err := s.Config.Password.Check(next, "new_password"); err != nil {
		return err
	}

	res, code, err := s.Codes.Consume(ctx, "", strings.TrimSpace(token), domain.CodeReset, s.Config.ResetTokenTTL)
	if err != nil {
		return err
	}
	if res == ConsumeWrongType {
		return NotFoundError(MsgInvalidToken, "token")
	}
	if err := codeError(res, MsgInvalidToken, "token"); err != nil {
		return err
	}

	if err := s.setPassword(ctx, code.UserID, next); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError(MsgInvalidToken, "token")
		}
		return err
	}
	slogx.FromContext(ctx).Info("password reset via forgot flow", "user_id", code.UserID)
	return nil
}

func (s *AuthService) requireUser(ctx context.Context, userID string) (domain.User, error) {
	u, found, err := s.Store.Users().FindUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	if !found {
		return domain.User{}, NotFoundError(MsgUserNotFound, "")
	}
	return u, nil
}

func (s *AuthService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *AuthService) sendCode(ctx context.Context, u domain.User, kind domain.CodeKind) error {
	value, err := s.Codes.Issue(ctx, u.ID, kind)
	if err != nil {
		return fmt.Errorf("issue %s code: %w", kind, err)
	}

	msg := notify.Message{To: u.Email}
	switch kind {
	case domain.CodeVerify:
		msg.Subject = subjectVerify
		msg.Body = fmt.Sprintf("Your OTP is %s. Please verify your email.", value)
	case domain.CodeForgot:
		msg.Subject = subjectForgot
		msg.Body = fmt.Sprintf("Your OTP is %s. Please reset your password.", value)
	}

	if err := s.Sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s email via %s: %w", kind, s.Sender.Name(), err)
	}
	slogx.FromContext(ctx).Info("code sent", "user_id", u.ID, "kind", kind)
	return nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.Hash("not-a-real-password")
	})
	return s.dummyHash
}

// codeError maps a non-OK consume result to its client error.
func codeError(res ConsumeResult, notFound, field string) error {
	switch res {
	case ConsumeOK:
		return nil
	case ConsumeExpired:
		return ExpiredError(MsgOTPExpired)
	case ConsumeWrongType:
		return TypeMismatchError(MsgInvalidOTPType)
	default:
		return NotFoundError(notFound, field)
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
