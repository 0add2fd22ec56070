package service

import (
	"strings"
	"time"

	"github.com/quizverse/quizverse/internal/users/domain"
	"github.com/quizverse/quizverse/pkg/jwtx"
)

const (
	DefaultVerifyCodeTTL = 5 * time.Minute
	DefaultForgotCodeTTL = 2 * time.Minute
	DefaultResetTokenTTL = 10 * time.Minute
	DefaultCodeDigits    = 6
	DefaultCodeRetention = 24 * time.Hour
)

// Config is everything the auth flows need to know about policy. It is built
// once at startup and passed in; nothing here reads the environment.
type Config struct {
	Password PasswordPolicy

	VerifyCodeTTL time.Duration
	ForgotCodeTTL time.Duration
	ResetTokenTTL time.Duration
	CodeDigits    int

	// CodeRetention keeps a code around this long past its window so a late
	// attempt is told it expired instead of not found.
	CodeRetention time.Duration

	// InvalidateOnReissue drops earlier codes of the same kind when a new one
	// is issued. When false every unexpired code keeps working.
	InvalidateOnReissue bool

	// AdminEmails receive the Admin role at registration.
	AdminEmails []string
}

func DefaultConfig() Config {
	return Config{
		Password:            DefaultPasswordPolicy(),
		VerifyCodeTTL:       DefaultVerifyCodeTTL,
		ForgotCodeTTL:       DefaultForgotCodeTTL,
		ResetTokenTTL:       DefaultResetTokenTTL,
		CodeDigits:          DefaultCodeDigits,
		CodeRetention:       DefaultCodeRetention,
		InvalidateOnReissue: true,
	}
}

// MaxCodeTTL is the longest window any code stays usable.
func (c Config) MaxCodeTTL() time.Duration {
	return max(c.VerifyCodeTTL, c.ForgotCodeTTL, c.ResetTokenTTL)
}

// MaxCodeRetention is how long the longest-lived code is kept in storage.
func (c Config) MaxCodeRetention() time.Duration {
	return c.MaxCodeTTL() + c.CodeRetention
}

// RetentionCutoff is the creation time before which codes of kind are purged.
func (c Config) RetentionCutoff(kind domain.CodeKind, now time.Time) time.Time {
	return now.Add(-c.TTL(kind) - c.CodeRetention)
}

// TTL returns the validity window for a kind of code.
func (c Config) TTL(kind domain.CodeKind) time.Duration {
	switch kind {
	case domain.CodeVerify:
		return c.VerifyCodeTTL
	case domain.CodeForgot:
		return c.ForgotCodeTTL
	case domain.CodeReset:
		return c.ResetTokenTTL
	default:
		return 0
	}
}

func (c Config) isAdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}

// TokenConfig sets lifetimes for issued JWTs.
type TokenConfig struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func DefaultTokenConfig(issuer string) TokenConfig {
	return TokenConfig{
		Issuer:     issuer,
		AccessTTL:  jwtx.DefaultAccessTokenTTL,
		RefreshTTL: jwtx.DefaultRefreshTokenTTL,
	}
}
