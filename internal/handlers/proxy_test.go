package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/dialect"
	"github.com/cc-switch/proxy/internal/failover"
	"github.com/cc-switch/proxy/internal/forwarder"
	"github.com/cc-switch/proxy/internal/httpclient"
	"github.com/cc-switch/proxy/internal/logstore"
	"github.com/cc-switch/proxy/internal/providers"
	"github.com/cc-switch/proxy/internal/router"
	"github.com/cc-switch/proxy/internal/transform"
)

func TestProxyHandler_DelegatesToForwarderForItsDialect(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer upstream.Close()

	mgr := newTestManager(t)
	require.NoError(t, mgr.AddProvider(config.Provider{
		ID:      "p1",
		Name:    "primary",
		Dialect: dialect.Claude,
		Settings: config.ProviderSettings{
			BaseURL: upstream.URL,
			APIKey:  "test-key",
		},
	}))
	require.NoError(t, mgr.SetCurrentProvider(dialect.Claude, "p1"))

	logger := slog.New(slog.NewTextHandler(testWriterForProxy{t}, nil))
	fw := forwarder.New(
		mgr,
		providers.NewRegistry(),
		transform.NewRegistry(),
		router.New(mgr.Health()),
		failover.New(mgr, logger, nil),
		httpclient.New(),
		logstore.New(0, "", logger),
		logger,
	)

	h := NewProxyHandler(fw, dialect.Claude)

	body := []byte(`{"model":"claude-3-opus","messages":[{"role":"user","content":"hi"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "msg_1", out["id"])
}

type testWriterForProxy struct{ t *testing.T }

func (w testWriterForProxy) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
