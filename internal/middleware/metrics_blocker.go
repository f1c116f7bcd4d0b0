package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

// MetricsBlockerMiddleware intercepts the client's own usage-metrics
// beacons the same way StatsigBlockerMiddleware intercepts telemetry,
// so they never consume an upstream provider attempt.
type MetricsBlockerMiddleware struct {
	logger *slog.Logger
}

func NewMetricsBlockerMiddleware(logger *slog.Logger) Middleware {
	mbm := &MetricsBlockerMiddleware{logger: logger}
	return mbm.middleware
}

func (mbm *MetricsBlockerMiddleware) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if mbm.isMetricsRequest(r.Host, r.URL.Path) {
			mbm.sendMetricsResponse(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (mbm *MetricsBlockerMiddleware) sendMetricsResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"accepted_count":0,"rejected_count":0}`))
}

func (mbm *MetricsBlockerMiddleware) isMetricsRequest(host, path string) bool {
	if strings.Contains(host, "api.anthropic.com") {
		metricsPaths := []string{
			"/api/claude_code/metrics",
			"/claude_code/metrics",
		}
		for _, p := range metricsPaths {
			if strings.HasPrefix(path, p) {
				return true
			}
		}
	}

	return false
}
