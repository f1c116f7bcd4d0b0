package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

// NewRecoveryMiddleware recovers from a panic anywhere downstream (most
// likely a bad type assertion deep in the transform package against an
// unexpected upstream shape) and turns it into a 500 instead of taking
// the whole listener down. The body uses the Claude error shape on the
// Claude routes and the OpenAI error shape everywhere else.
func NewRecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", "panic", rec, "path", r.URL.Path, "method", r.Method)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					if strings.HasPrefix(r.URL.Path, "/v1/messages") || strings.HasPrefix(r.URL.Path, "/v1/complete") {
						_, _ = w.Write([]byte(`{"type":"error","error":{"type":"internal_error","message":"internal error"}}`))
					} else {
						_, _ = w.Write([]byte(`{"error":{"message":"internal error","type":"internal_error","code":500}}`))
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
