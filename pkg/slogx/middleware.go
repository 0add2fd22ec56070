package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/quizverse/quizverse/pkg/idx"
)

// HeaderRequestID is echoed back so clients can quote it in bug reports.
const HeaderRequestID = "X-Request-ID"

// HTTPMiddleware attaches a request scoped logger to the context and logs one
// line per request once the handler returns. The line carries the matched
// mux pattern rather than the raw path, which may hold codes and tokens.
func HTTPMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get(HeaderRequestID)
			if reqID == "" {
				reqID = idx.New().String()
			}
			w.Header().Set(HeaderRequestID, reqID)

			logger := base.With(
				"req_id", reqID,
				"method", r.Method,
				"remote_addr", r.RemoteAddr,
			)

			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			req := r.WithContext(WithContext(r.Context(), logger))
			next.ServeHTTP(rw, req)

			// ServeMux records the match on the request it was handed.
			route := req.Pattern
			if route == "" {
				route = "unmatched"
			}

			level := slog.LevelInfo
			if rw.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "http_request",
				"route", route,
				"status", rw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
