package forwarder

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
	"github.com/cc-switch/proxy/internal/httpclient"
	"github.com/cc-switch/proxy/internal/logstore"
	"github.com/cc-switch/proxy/internal/providers"
	"github.com/cc-switch/proxy/internal/router"
	"github.com/cc-switch/proxy/internal/transform"
)

func newTestManager(t *testing.T) *config.Manager {
	t.Helper()
	t.Setenv("CC_SWITCH_CONFIG_DIR", t.TempDir())
	mgr, err := config.NewManager()
	require.NoError(t, err)
	require.NoError(t, mgr.Load())
	return mgr
}

func newTestForwarder(t *testing.T, upstream string) *Forwarder {
	t.Helper()

	mgr := newTestManager(t)
	require.NoError(t, mgr.AddProvider(config.Provider{
		ID:      "p1",
		Name:    "primary",
		Dialect: dialect.Claude,
		Settings: config.ProviderSettings{
			BaseURL: upstream,
			APIKey:  "test-key",
		},
	}))
	require.NoError(t, mgr.SetCurrentProvider(dialect.Claude, "p1"))

	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))

	return New(
		mgr,
		providers.NewRegistry(),
		transform.NewRegistry(),
		router.New(mgr.Health()),
		failover.New(mgr, logger, nil),
		httpclient.New(),
		logstore.New(0, "", logger),
		logger,
	)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestForwarder_Handle_ForwardsAndRelaysUpstreamResponse(t *testing.T) {
	var gotAuth, gotPath string

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("x-api-key")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"msg_1","content":[{"type":"text","text":"hi"}]}`))
	}))
	defer upstream.Close()

	fw := newTestForwarder(t, upstream.URL)

	body := []byte(`{"model":"claude-3-opus","messages":[{"role":"user","content":"hello"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	fw.Handle(rec, req, dialect.Claude, "/v1/messages")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/v1/messages", gotPath)
	require.Equal(t, "test-key", gotAuth)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "msg_1", out["id"])
}

func TestForwarder_Handle_FailsOverToNextProviderOnUpstreamError(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer failing.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"msg_ok"}`))
	}))
	defer healthy.Close()

	sortIndex1, sortIndex2 := uint32(1), uint32(2)

	mgr := newTestManager(t)
	require.NoError(t, mgr.AddProvider(config.Provider{
		ID: "p1", Name: "primary", Dialect: dialect.Claude, SortIndex: &sortIndex1,
		Settings: config.ProviderSettings{BaseURL: failing.URL, APIKey: "k1"},
	}))
	require.NoError(t, mgr.AddProvider(config.Provider{
		ID: "p2", Name: "backup", Dialect: dialect.Claude, SortIndex: &sortIndex2,
		Settings: config.ProviderSettings{BaseURL: healthy.URL, APIKey: "k2"},
	}))
	require.NoError(t, mgr.SetCurrentProvider(dialect.Claude, "p1"))

	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	fw := New(
		mgr,
		providers.NewRegistry(),
		transform.NewRegistry(),
		router.New(mgr.Health()),
		failover.New(mgr, logger, nil),
		httpclient.New(),
		logstore.New(0, "", logger),
		logger,
	)

	body := []byte(`{"model":"claude-3-opus","messages":[{"role":"user","content":"hello"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	fw.Handle(rec, req, dialect.Claude, "/v1/messages")

	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "msg_ok", out["id"])
}
