package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/cc-switch/proxy/internal/config"
)

// AuthMiddleware gates the admin surface (/status, /providers) behind
// CC_SWITCH_API_KEY. Unset, the gate is a no-op: the proxy routes never
// go through this chain at all, so an unset key only opens the local
// admin view, not upstream credentials.
type AuthMiddleware struct {
	config *config.Manager
	logger *slog.Logger
}

func NewAuthMiddleware(cfg *config.Manager, logger *slog.Logger) Middleware {
	am := &AuthMiddleware{config: cfg, logger: logger}
	return am.middleware
}

func (am *AuthMiddleware) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := am.authenticate(r); err != nil {
			am.logger.Warn("admin authentication failed", "error", err.Error(), "remote_addr", r.RemoteAddr)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (am *AuthMiddleware) authenticate(r *http.Request) error {
	key := am.config.AdminAPIKey()
	if key == "" {
		return nil
	}

	var token string
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		token = strings.TrimPrefix(auth, "Bearer ")
	} else if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		token = apiKey
	}

	if token == "" || token != key {
		return errUnauthorized
	}

	return nil
}

var errUnauthorized = authError("missing or invalid admin API key")

type authError string

func (e authError) Error() string { return string(e) }
