package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/quizverse/quizverse/internal/users/docs" // Swagger docs
	"github.com/quizverse/quizverse/internal/users/service"
	"github.com/quizverse/quizverse/internal/users/store"
	"github.com/quizverse/quizverse/pkg/httpx"
	"github.com/quizverse/quizverse/pkg/jwtx"
	"github.com/quizverse/quizverse/pkg/slogx"
)

// metricsService is the service label on HTTP metrics.
const metricsService = "users"

// Pinger is a dependency checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     httpx.TokenVerifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	AuthService *service.AuthService
	UserService *service.UserService

	// CodesPinger is set when one-time codes are kept outside the database.
	CodesPinger Pinger

	// AuthLimit applies per client address to the unauthenticated routes
	// that take credentials or codes. UserLimit applies per caller to
	// secured routes. Zero values disable limiting. Both must be set before
	// ApplyRoutes.
	AuthLimit httpx.RateLimit
	UserLimit httpx.RateLimit
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier httpx.TokenVerifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAccount()
	r.registerVerification()
	r.registerPasswords()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Quizverse Users Service API
//	@version		0.1.0
//	@description	Registration, email verification, login and password recovery for quizverse.
//	@description
//	@description				Access tokens are EdDSA signed JWTs and can be verified with the JWKS endpoint.
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// public registers h without authentication.
func (r *Router) public(pattern string, h http.HandlerFunc) {
	r.Mux.Handle(pattern, httpx.Chain(h,
		httpx.Metrics(metricsService, pattern),
		httpx.RateLimitByIP(r.AuthLimit),
	))
}

// secured registers h behind a valid access token.
func (r *Router) secured(pattern string, h http.HandlerFunc) {
	r.Mux.Handle(pattern, httpx.Chain(h,
		httpx.Metrics(metricsService, pattern),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(r.UserLimit),
	))
}

func (r *Router) registerAccount() {
	h := &AccountHandler{AuthService: r.AuthService, UserService: r.UserService}

	r.public("POST /register/{$}", h.HandleRegister)
	r.public("POST /login/{$}", h.HandleLogin)
	r.secured("POST /logout/{$}", h.HandleLogout)
	r.secured("POST /get-access-token/{$}", h.HandleRefresh)
}

func (r *Router) registerVerification() {
	h := &VerifyHandler{AuthService: r.AuthService}

	r.secured("POST /verify/{$}", h.HandleSend)
	r.secured("POST /verify/{otp}/{$}", h.HandleVerify)
}

func (r *Router) registerPasswords() {
	h := &PasswordHandler{AuthService: r.AuthService}

	r.secured("POST /reset-password/{$}", h.HandleReset)
	r.public("POST /forgot-password/{$}", h.HandleForgot)
	r.public("POST /forgot-password/{otp}/{$}", h.HandleVerifyForgot)
	r.public("POST /reset-forgot-password/{token}/{$}", h.HandleResetForgot)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	r.secured("GET /user", h.HandleMe)
	r.secured("GET /users", h.HandleList)
	r.secured("GET /roles", h.HandleRoles)
	r.secured("POST /users/{id}/roles/{$}", h.HandleAssignRole)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys, r.CodesPinger))
	r.Mux.Handle("GET /.well-known/jwks.json", JWKSHandler(r.keys))
	r.Mux.Handle("GET /metrics", promhttp.Handler())
}
