package modelmapper

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cc-switch/proxy/internal/config"
)

func TestMapModel_ModelMapWinsOverEffortMap(t *testing.T) {
	p := config.Provider{
		Meta: config.ProviderMeta{
			CodexModelMapping: &config.CodexModelMappingMeta{
				Enabled:   true,
				ModelMap:  map[string]string{"gpt-4o": "gpt-4o-simple"},
				EffortMap: map[string]string{"gpt-4o@high": "gpt-4o-high"},
			},
		},
	}

	body := map[string]any{
		"model":     "gpt-4o",
		"reasoning": map[string]any{"effort": "high"},
	}

	out, original, mapped := MapModel(body, p)

	require.Equal(t, "gpt-4o", original)
	require.Equal(t, "gpt-4o-simple", mapped)
	require.Equal(t, "gpt-4o-simple", out["model"])
}

func TestMapModel_FallsBackToEffortMap(t *testing.T) {
	p := config.Provider{
		Meta: config.ProviderMeta{
			CodexModelMapping: &config.CodexModelMappingMeta{
				Enabled:   true,
				EffortMap: map[string]string{"gpt-4o@high": "gpt-4o-high"},
			},
		},
	}

	body := map[string]any{
		"model":     "gpt-4o",
		"reasoning": map[string]any{"effort": "high"},
	}

	_, _, mapped := MapModel(body, p)

	require.Equal(t, "gpt-4o-high", mapped)
}

func TestMapModel_KeepsOriginalWhenDisabled(t *testing.T) {
	p := config.Provider{}

	body := map[string]any{"model": "gpt-4o"}

	out, original, mapped := MapModel(body, p)

	require.Equal(t, body, out)
	require.Equal(t, "gpt-4o", original)
	require.Equal(t, "gpt-4o", mapped)
}
