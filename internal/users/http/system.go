package http

import (
	"net/http"
	"time"

	"github.com/quizverse/quizverse/internal/users/store"
	"github.com/quizverse/quizverse/pkg/httpx"
	"github.com/quizverse/quizverse/pkg/jwtx"
	"github.com/quizverse/quizverse/pkg/usersdk"
)

// LivezHandler godoc
//
//	@Summary		Liveness probe
//	@Description	Always 200 while the process is serving.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	usersdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, usersdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Checks the database, the signing keys and, when configured, the code store.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	usersdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	usersdk.HealthResponse	"one or more checks failed"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	keys *jwtx.KeySet,
	codes Pinger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &usersdk.HealthChecks{Database: "ok", Signer: "ok"}
		status := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			status = http.StatusServiceUnavailable
		}
		if !keys.IsReady() {
			checks.Signer = "error: no keys loaded"
			status = http.StatusServiceUnavailable
		}
		if codes != nil {
			checks.Codes = "ok"
			if err := codes.Ping(r.Context()); err != nil {
				checks.Codes = "error: " + err.Error()
				status = http.StatusServiceUnavailable
			}
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		httpx.WriteJSON(w, status, usersdk.HealthResponse{
			Status:  overall,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks:  checks,
		})
	}
}

// JWKSHandler exposes the public keys that verify access tokens.
//
//	@Summary		Get JWKS
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	usersdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, usersdk.JWKSResponse(keys.PublicJWKS()))
	}
}
