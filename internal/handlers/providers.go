package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/dialect"
)

// ProvidersHandler exposes a read-only, key-redacted snapshot of the
// configured provider catalog.
type ProvidersHandler struct {
	cfg *config.Manager
}

func NewProvidersHandler(cfg *config.Manager) *ProvidersHandler {
	return &ProvidersHandler{cfg: cfg}
}

type providerView struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Dialect   dialect.Dialect `json:"dialect"`
	BaseURL   string          `json:"base_url,omitempty"`
	HasAPIKey bool            `json:"has_api_key"`
	SortIndex uint32          `json:"sort_index"`
}

func (h *ProvidersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := h.cfg.Snapshot()

	views := make([]providerView, 0, len(snapshot.Providers))
	for _, p := range snapshot.Providers {
		views = append(views, providerView{
			ID:        p.ID,
			Name:      p.Name,
			Dialect:   p.Dialect,
			BaseURL:   p.Settings.ResolvedBaseURL(),
			HasAPIKey: p.Settings.ResolvedAPIKey() != "" || len(p.Settings.Env) > 0,
			SortIndex: p.SortIndexOrDefault(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(views)
}
