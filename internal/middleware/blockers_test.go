package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func passThroughHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("upstream"))
	})
}

func TestStatsigBlockerMiddleware_BlocksKnownPaths(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	handler := NewStatsigBlockerMiddleware(logger)(passThroughHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/log_event", nil)
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestStatsigBlockerMiddleware_PassesThroughOtherRequests(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	handler := NewStatsigBlockerMiddleware(logger)(passThroughHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "upstream", rec.Body.String())
}

func TestMetricsBlockerMiddleware_BlocksKnownPaths(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	handler := NewMetricsBlockerMiddleware(logger)(passThroughHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/claude_code/metrics", nil)
	req.Host = "api.anthropic.com"
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"accepted_count":0,"rejected_count":0}`, rec.Body.String())
}

func TestMetricsBlockerMiddleware_PassesThroughOtherHosts(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	handler := NewMetricsBlockerMiddleware(logger)(passThroughHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/claude_code/metrics", nil)
	req.Host = "other-host.example.com"
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "upstream", rec.Body.String())
}
