package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	httpapi "github.com/quizverse/quizverse/internal/users/http"
	"github.com/quizverse/quizverse/internal/users/notify"
	"github.com/quizverse/quizverse/internal/users/service"
	"github.com/quizverse/quizverse/internal/users/store"
	"github.com/quizverse/quizverse/internal/users/store/drivers/postgres"
	"github.com/quizverse/quizverse/internal/users/store/drivers/redis"
	"github.com/quizverse/quizverse/internal/users/store/drivers/sqlite"
	"github.com/quizverse/quizverse/pkg/cryptox"
	"github.com/quizverse/quizverse/pkg/jwtx"
	"github.com/quizverse/quizverse/pkg/slogx"
)

// BuildVersion is overridden at build time with -ldflags "-X ...".
var BuildVersion = "v0.1.0"

// Application wires the users service together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	codes      store.Codes
	rdb        *goredis.Client // nil unless REDIS_URL is set
	keyManager *jwtx.KeyManager
	sender     notify.Sender

	authService         *service.AuthService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New builds every dependency. Nothing is listening until Run.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "users-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initCodes(ctx); err != nil {
		app.closeStores()
		return nil, err
	}
	if err := app.initSender(); err != nil {
		app.closeStores()
		return nil, err
	}

	keyManager, err := InitKeys(cfg, app.logger)
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	if err := app.initServices(); err != nil {
		app.closeStores()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler exposes the router, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts serving and blocks until a signal arrives or the server fails.
func (app *Application) Run(ctx context.Context) error {
	app.housekeepingService.Start(ctx)

	app.logger.Info("users service starting", "addr", app.cfg.Addr, "version", BuildVersion,
		"db_driver", app.cfg.DBDriver, "codes_in_redis", app.rdb != nil, "mail", app.sender.Name())

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			app.closeStores()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	case <-ctx.Done():
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops housekeeping and closes stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down users service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("users service stopped")
	return nil
}

func (app *Application) closeStores() error {
	var errs []error
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initDatabase opens the configured driver and applies migrations.
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DBDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		app.db = nil
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DBDriver)
	return nil
}

// initCodes keeps one-time codes in redis when REDIS_URL is set, otherwise
// in the database.
func (app *Application) initCodes(ctx context.Context) error {
	if app.cfg.RedisURL == "" {
		app.codes = app.db.Codes()
		return nil
	}

	opts, err := goredis.ParseURL(app.cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("connect redis: %w", err)
	}

	app.rdb = rdb
	app.codes = redis.NewCodes(rdb, redis.DefaultPrefix, app.cfg.ServiceConfig().MaxCodeRetention())
	app.logger.Info("one-time codes stored in redis", "addr", opts.Addr)
	return nil
}

func (app *Application) initSender() error {
	var sender notify.Sender
	switch app.cfg.MailDriver {
	case MailDriverSMTP:
		s, err := notify.NewSMTPSender(app.cfg.SMTPConfig())
		if err != nil {
			return fmt.Errorf("failed to initialize smtp sender: %w", err)
		}
		sender = s
	default:
		sender = &notify.LogSender{Logger: app.logger}
		app.logger.Warn("mail driver is log; OTPs are written to the log")
	}

	if app.cfg.MailRatePerSec > 0 {
		sender = notify.NewThrottled(sender, app.cfg.MailRatePerSec, app.cfg.MailBurst)
	}
	app.sender = sender
	return nil
}

func (app *Application) initServices() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}

	svcCfg := app.cfg.ServiceConfig()

	app.authService = &service.AuthService{
		Config: svcCfg,
		Store:  app.db,
		Codes: &service.CodeIssuer{
			Codes:               app.codes,
			Digits:              svcCfg.CodeDigits,
			InvalidateOnReissue: svcCfg.InvalidateOnReissue,
		},
		Tokens: &service.TokenService{
			KeyManager: app.keyManager,
			Store:      app.db,
			Config:     app.cfg.TokenConfig(),
		},
		Hasher: cryptox.NewPasswordHasher(pepper, cryptox.DefaultArgon2Params),
		Sender: app.sender,
	}
	app.userService = &service.UserService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.codes,
		svcCfg,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		app.keyManager.Verifier,
		BuildVersion,
		app.db,
		app.logger,
	)
	router.AuthService = app.authService
	router.UserService = app.userService
	router.AuthLimit, router.UserLimit = app.cfg.RateLimits()
	if app.rdb != nil {
		if p, ok := app.codes.(httpapi.Pinger); ok {
			router.CodesPinger = p
		}
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              app.cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
