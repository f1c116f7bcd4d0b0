package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/dialect"
)

func TestProvidersHandler_RedactsAPIKeys(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.AddProvider(config.Provider{
		ID:      "p1",
		Name:    "primary",
		Dialect: dialect.Codex,
		Settings: config.ProviderSettings{
			BaseURL: "https://api.example.com",
			APIKey:  "super-secret",
		},
	}))

	h := NewProvidersHandler(mgr)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/providers", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "super-secret")

	var views []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	require.Equal(t, "p1", views[0]["id"])
	require.Equal(t, true, views[0]["has_api_key"])
}

func TestProvidersHandler_EmptyCatalogReturnsEmptyArray(t *testing.T) {
	mgr := newTestManager(t)
	h := NewProvidersHandler(mgr)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/providers", nil))

	require.JSONEq(t, `[]`, rec.Body.String())
}
