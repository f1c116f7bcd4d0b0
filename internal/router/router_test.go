package router

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/dialect"
)

func idx(v uint32) *uint32 { return &v }

func sampleConfig() *config.Config {
	return &config.Config{
		Providers: []config.Provider{
			{ID: "a", Dialect: dialect.Claude, SortIndex: idx(1)},
			{ID: "b", Dialect: dialect.Claude, SortIndex: idx(2)},
			{ID: "c", Dialect: dialect.Claude},
		},
		CurrentProvider: map[string]string{"Claude": "a"},
	}
}

func TestRouter_PrefersCurrentProvider(t *testing.T) {
	r := New(config.HealthStoreForTest())

	cfg := sampleConfig()
	p, err := r.SelectProvider(cfg, dialect.Claude, map[string]struct{}{})
	require.NoError(t, err)
	require.Equal(t, "a", p.ID)
}

func TestRouter_StableAcrossRepeatedSelections(t *testing.T) {
	r := New(config.HealthStoreForTest())
	cfg := sampleConfig()

	p1, err := r.SelectProvider(cfg, dialect.Claude, map[string]struct{}{})
	require.NoError(t, err)
	p2, err := r.SelectProvider(cfg, dialect.Claude, map[string]struct{}{})
	require.NoError(t, err)

	require.Equal(t, p1.ID, p2.ID)
}

func TestRouter_FallsBackBySortIndexWhenCurrentFailed(t *testing.T) {
	r := New(config.HealthStoreForTest())
	cfg := sampleConfig()

	p, err := r.SelectProvider(cfg, dialect.Claude, map[string]struct{}{"a": {}})
	require.NoError(t, err)
	require.Equal(t, "b", p.ID)
}

func TestRouter_NoAvailableProviderWhenAllFailed(t *testing.T) {
	r := New(config.HealthStoreForTest())
	cfg := sampleConfig()

	_, err := r.SelectProvider(cfg, dialect.Claude, map[string]struct{}{"a": {}, "b": {}, "c": {}})
	require.Error(t, err)
}
