package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

// StatsigBlockerMiddleware intercepts the client's own telemetry calls
// before they reach the forwarder at all, returning a canned success
// response instead of proxying them upstream (and burning an upstream
// provider slot on traffic that was never a completion request).
type StatsigBlockerMiddleware struct {
	logger *slog.Logger
}

func NewStatsigBlockerMiddleware(logger *slog.Logger) Middleware {
	sbm := &StatsigBlockerMiddleware{logger: logger}
	return sbm.middleware
}

func (sbm *StatsigBlockerMiddleware) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sbm.isStatsigRequest(r.Host, r.URL.Path) {
			sbm.sendStatsigResponse(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (sbm *StatsigBlockerMiddleware) sendStatsigResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Access-Control-Allow-Credentials", "true")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"success":true}`))
}

func (sbm *StatsigBlockerMiddleware) isStatsigRequest(host, path string) bool {
	if strings.Contains(host, "statsig.anthropic.com") {
		return true
	}

	statsigPaths := []string{
		"/v1/initialize",
		"/v1/log_event",
		"/v1/rgstr",
		"/statsig",
		"/telemetry",
		"/analytics",
	}

	for _, p := range statsigPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
