package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/dialect"
	"github.com/cc-switch/proxy/internal/logstore"
)

var allDialects = []dialect.Dialect{dialect.Claude, dialect.Codex, dialect.Gemini}

// StatusHandler reports, per dialect, which provider is current and its
// health, plus a tail of recent request records.
type StatusHandler struct {
	cfg  *config.Manager
	logs *logstore.Store
}

func NewStatusHandler(cfg *config.Manager, logs *logstore.Store) *StatusHandler {
	return &StatusHandler{cfg: cfg, logs: logs}
}

type dialectStatus struct {
	CurrentProviderID string                  `json:"current_provider_id,omitempty"`
	Health            *config.ProviderHealth  `json:"health,omitempty"`
}

type statusResponse struct {
	Dialects map[string]dialectStatus `json:"dialects"`
	Recent   []logstore.Record        `json:"recent"`
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := h.cfg.Snapshot()

	out := statusResponse{Dialects: make(map[string]dialectStatus, len(allDialects))}

	for _, d := range allDialects {
		ds := dialectStatus{}

		if id, ok := snapshot.CurrentProviderID(d); ok {
			ds.CurrentProviderID = id
			if hp, found := h.cfg.Health().Snapshot(id, string(d)); found {
				ds.Health = &hp
			}
		}

		out.Dialects[string(d)] = ds
	}

	n := 50
	if raw := r.URL.Query().Get("n"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			n = parsed
		}
	}
	out.Recent = h.logs.Tail(n)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
