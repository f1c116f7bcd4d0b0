package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cc-switch/proxy/internal/config"
)

func newTestManager(t *testing.T) *config.Manager {
	t.Helper()
	t.Setenv("CC_SWITCH_CONFIG_DIR", t.TempDir())
	mgr, err := config.NewManager()
	require.NoError(t, err)
	return mgr
}

func TestAuthMiddleware_NoKeyConfigured_AllowsAll(t *testing.T) {
	mgr := newTestManager(t)
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))

	mw := NewAuthMiddleware(mgr, logger)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_RejectsMissingOrWrongKey(t *testing.T) {
	mgr := newTestManager(t)
	t.Setenv("CC_SWITCH_API_KEY", "secret-key")
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))

	mw := NewAuthMiddleware(mgr, logger)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/status", nil)
	req2.Header.Set("Authorization", "Bearer wrong-key")
	handler.ServeHTTP(rec2, req2)
	require.Equal(t, http.StatusUnauthorized, rec2.Code)
}

func TestAuthMiddleware_AcceptsBearerOrXAPIKey(t *testing.T) {
	mgr := newTestManager(t)
	t.Setenv("CC_SWITCH_API_KEY", "secret-key")
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))

	mw := NewAuthMiddleware(mgr, logger)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/status", nil)
	req2.Header.Set("X-API-Key", "secret-key")
	handler.ServeHTTP(rec2, req2)
	require.Equal(t, http.StatusOK, rec2.Code)
}
