// Package router selects an upstream provider for a dialect, preferring
// the configured "current" provider and falling back to the next
// healthy sibling sorted by sort_index.
package router

import (
	"sort"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/dialect"
	"github.com/cc-switch/proxy/internal/proxyerr"
)

// Router resolves a provider for a dialect given a snapshot of the
// config and the shared health store.
type Router struct {
	health *config.HealthStore
}

func New(health *config.HealthStore) *Router {
	return &Router{health: health}
}

// SelectProvider implements SPEC_FULL.md §4.G: try the current pointer
// first (if not already failed and healthy), else walk the dialect's
// providers sorted by sort_index (ties broken by id), excluding
// anything in failedIDs, and return the first healthy one.
func (r *Router) SelectProvider(cfg *config.Config, d dialect.Dialect, failedIDs map[string]struct{}) (config.Provider, error) {
	candidates := cfg.ProvidersByDialect(d)

	currentID, hasCurrent := cfg.CurrentProviderID(d)
	if hasCurrent {
		if _, failed := failedIDs[currentID]; !failed && r.health.IsHealthy(currentID, string(d)) {
			if p, ok := cfg.ProviderByID(currentID); ok {
				return p, nil
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := candidates[i].SortIndexOrDefault(), candidates[j].SortIndexOrDefault()
		if si != sj {
			return si < sj
		}
		return candidates[i].ID < candidates[j].ID
	})

	for _, p := range candidates {
		if _, failed := failedIDs[p.ID]; failed {
			continue
		}
		if !r.health.IsHealthy(p.ID, string(d)) {
			continue
		}
		return p, nil
	}

	return config.Provider{}, &proxyerr.NoAvailableProvider{Dialect: string(d)}
}
