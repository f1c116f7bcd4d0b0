package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/dialect"
	"github.com/cc-switch/proxy/internal/logstore"
)

func newTestManager(t *testing.T) *config.Manager {
	t.Helper()
	t.Setenv("CC_SWITCH_CONFIG_DIR", t.TempDir())
	mgr, err := config.NewManager()
	require.NoError(t, err)
	require.NoError(t, mgr.Load())
	return mgr
}

func TestStatusHandler_ReportsCurrentProviderAndHealth(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.AddProvider(config.Provider{ID: "p1", Dialect: dialect.Claude}))
	require.NoError(t, mgr.SetCurrentProvider(dialect.Claude, "p1"))
	mgr.Health().RecordSuccess("p1", string(dialect.Claude))

	logs := logstore.New(0, "", slog.Default())
	logs.Append(logstore.Record{RequestID: "r1", ProviderID: "p1", Dialect: dialect.Claude})

	h := NewStatusHandler(mgr, logs)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	dialects := out["dialects"].(map[string]any)
	claude := dialects[string(dialect.Claude)].(map[string]any)
	require.Equal(t, "p1", claude["current_provider_id"])

	recent := out["recent"].([]any)
	require.Len(t, recent, 1)
}

func TestStatusHandler_HonorsNQueryParam(t *testing.T) {
	mgr := newTestManager(t)
	logs := logstore.New(0, "", slog.Default())
	for i := 0; i < 5; i++ {
		logs.Append(logstore.Record{RequestID: "r"})
	}

	h := NewStatusHandler(mgr, logs)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status?n=2", nil))

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	recent := out["recent"].([]any)
	require.Len(t, recent, 2)
}
