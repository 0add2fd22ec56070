package app

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/quizverse/quizverse/internal/users/notify"
	"github.com/quizverse/quizverse/internal/users/service"
	"github.com/quizverse/quizverse/pkg/httpx"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	MailDriverLog  = "log"
	MailDriverSMTP = "smtp"
)

type Config struct {
	Addr      string `env:"ADDR" envDefault:":8080"`
	Env       string `env:"ENV" envDefault:"dev"`         // dev, test, prod
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`  // debug, info, warn, error
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // json, text

	DBDriver     string `env:"DB_DRIVER" envDefault:"sqlite"`
	DatabaseFile string `env:"DATABASE_FILE" envDefault:"users.db"`
	DatabaseURL  string `env:"DATABASE_URL"`

	// RedisURL moves one-time codes out of the database when set.
	RedisURL string `env:"REDIS_URL"`

	PepperFile     string `env:"PEPPER_FILE" envDefault:"pepper"`
	Issuer         string `env:"ISSUER" envDefault:"quizverse-users"`
	KeyID          string `env:"KEY_ID"`
	NumKeys        int    `env:"NUM_KEYS" envDefault:"1"`
	SigningKeyFile string `env:"SIGNING_KEY_FILE"` // empty: ephemeral keys

	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	VerifyCodeTTL       time.Duration `env:"VERIFY_CODE_TTL" envDefault:"5m"`
	ForgotCodeTTL       time.Duration `env:"FORGOT_CODE_TTL" envDefault:"2m"`
	ResetTokenTTL       time.Duration `env:"RESET_TOKEN_TTL" envDefault:"10m"`
	CodeRetention       time.Duration `env:"CODE_RETENTION" envDefault:"24h"`
	CodeDigits          int           `env:"CODE_DIGITS" envDefault:"6"`
	InvalidateOnReissue bool          `env:"INVALIDATE_ON_REISSUE" envDefault:"true"`

	PasswordMinLength int    `env:"PASSWORD_MIN_LENGTH" envDefault:"8"`
	PasswordPattern   string `env:"PASSWORD_PATTERN"`

	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`

	MailDriver     string  `env:"MAIL_DRIVER" envDefault:"log"`
	MailFrom       string  `env:"MAIL_FROM" envDefault:"no-reply@quizverse.local"`
	SMTPHost       string  `env:"SMTP_HOST"`
	SMTPPort       int     `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername   string  `env:"SMTP_USERNAME"`
	SMTPPassword   string  `env:"SMTP_PASSWORD"`
	SMTPTLS        bool    `env:"SMTP_TLS" envDefault:"true"`
	MailRatePerSec float64 `env:"MAIL_RATE_PER_SEC" envDefault:"5"`
	MailBurst      int     `env:"MAIL_BURST" envDefault:"10"`

	// Per address limit on register, login and the forgot-password steps.
	RateLimitAuthRequests int           `env:"RATELIMIT_AUTH_REQUESTS" envDefault:"10"`
	RateLimitAuthWindow   time.Duration `env:"RATELIMIT_AUTH_WINDOW" envDefault:"1m"`
	RateLimitAuthBurst    int           `env:"RATELIMIT_AUTH_BURST" envDefault:"10"`

	// Per user limit on authenticated routes.
	RateLimitUserRequests int           `env:"RATELIMIT_USER_REQUESTS" envDefault:"60"`
	RateLimitUserWindow   time.Duration `env:"RATELIMIT_USER_WINDOW" envDefault:"1m"`
	RateLimitUserBurst    int           `env:"RATELIMIT_USER_BURST" envDefault:"60"`

	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"5m"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
}

// LoadConfig reads the environment and validates the result.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	switch c.DBDriver {
	case DriverSQLite:
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("DATABASE_FILE is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.DBDriver))
	}

	switch c.MailDriver {
	case MailDriverLog:
	case MailDriverSMTP:
		if c.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required for the smtp mail driver"))
		}
		if c.MailFrom == "" {
			errs = append(errs, errors.New("MAIL_FROM is required for the smtp mail driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("MAIL_DRIVER must be %q or %q, got %q", MailDriverLog, MailDriverSMTP, c.MailDriver))
	}

	for name, d := range map[string]time.Duration{
		"ACCESS_TOKEN_TTL":      c.AccessTokenTTL,
		"REFRESH_TOKEN_TTL":     c.RefreshTokenTTL,
		"VERIFY_CODE_TTL":       c.VerifyCodeTTL,
		"FORGOT_CODE_TTL":       c.ForgotCodeTTL,
		"RESET_TOKEN_TTL":       c.ResetTokenTTL,
		"CODE_RETENTION":        c.CodeRetention,
		"HOUSEKEEPING_INTERVAL": c.HousekeepingInterval,
		"RATELIMIT_AUTH_WINDOW": c.RateLimitAuthWindow,
		"RATELIMIT_USER_WINDOW": c.RateLimitUserWindow,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must not be shorter than ACCESS_TOKEN_TTL"))
	}

	if c.CodeDigits < 4 || c.CodeDigits > 10 {
		errs = append(errs, fmt.Errorf("CODE_DIGITS must be between 4 and 10, got %d", c.CodeDigits))
	}
	if c.NumKeys < 1 || c.NumKeys > 10 {
		errs = append(errs, fmt.Errorf("NUM_KEYS must be between 1 and 10, got %d", c.NumKeys))
	}
	if c.PasswordMinLength < 1 {
		errs = append(errs, errors.New("PASSWORD_MIN_LENGTH must be positive"))
	}
	if c.PasswordPattern != "" {
		if _, err := regexp.Compile(c.PasswordPattern); err != nil {
			errs = append(errs, fmt.Errorf("PASSWORD_PATTERN: %w", err))
		}
	}
	if c.RateLimitAuthRequests < 0 || c.RateLimitUserRequests < 0 {
		errs = append(errs, errors.New("RATELIMIT_*_REQUESTS must not be negative (0 disables)"))
	}
	if c.MailRatePerSec < 0 {
		errs = append(errs, errors.New("MAIL_RATE_PER_SEC must not be negative"))
	}

	return errors.Join(errs...)
}

// ServiceConfig is the policy handed to the auth flows.
func (c Config) ServiceConfig() service.Config {
	cfg := service.DefaultConfig()
	cfg.Password.MinLength = c.PasswordMinLength
	if c.PasswordPattern != "" {
		cfg.Password.Pattern = regexp.MustCompile(c.PasswordPattern)
	}
	cfg.VerifyCodeTTL = c.VerifyCodeTTL
	cfg.ForgotCodeTTL = c.ForgotCodeTTL
	cfg.ResetTokenTTL = c.ResetTokenTTL
	cfg.CodeDigits = c.CodeDigits
	cfg.CodeRetention = c.CodeRetention
	cfg.InvalidateOnReissue = c.InvalidateOnReissue

	for _, e := range c.AdminEmails {
		if e = strings.TrimSpace(e); e != "" {
			cfg.AdminEmails = append(cfg.AdminEmails, e)
		}
	}
	return cfg
}

func (c Config) TokenConfig() service.TokenConfig {
	return service.TokenConfig{
		Issuer:     c.Issuer,
		AccessTTL:  c.AccessTokenTTL,
		RefreshTTL: c.RefreshTokenTTL,
	}
}

// RateLimits returns the limits for public credential routes and for
// authenticated routes.
func (c Config) RateLimits() (auth, user httpx.RateLimit) {
	auth = httpx.RateLimit{Requests: c.RateLimitAuthRequests, Window: c.RateLimitAuthWindow, Burst: c.RateLimitAuthBurst}
	user = httpx.RateLimit{Requests: c.RateLimitUserRequests, Window: c.RateLimitUserWindow, Burst: c.RateLimitUserBurst}
	return auth, user
}

func (c Config) SMTPConfig() notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.MailFrom,
		TLS:      c.SMTPTLS,
	}
}
