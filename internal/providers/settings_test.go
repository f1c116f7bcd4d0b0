package providers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/dialect"
)

func TestExtractBaseURL_AcceptsCamelCaseAlias(t *testing.T) {
	p := config.Provider{
		ID:      "p1",
		Dialect: dialect.Codex,
		Settings: config.ProviderSettings{
			BaseURLCamel: "https://camel.example.com",
		},
	}

	got, err := ExtractBaseURL(p)
	require.NoError(t, err)
	require.Equal(t, "https://camel.example.com", got)
}

func TestExtractBaseURL_AcceptsAPIEndpointAlias(t *testing.T) {
	p := config.Provider{
		ID:      "p1",
		Dialect: dialect.Codex,
		Settings: config.ProviderSettings{
			APIEndpoint: "https://endpoint.example.com",
		},
	}

	got, err := ExtractBaseURL(p)
	require.NoError(t, err)
	require.Equal(t, "https://endpoint.example.com", got)
}

func TestExtractBaseURL_PrefersSnakeCaseOverAliases(t *testing.T) {
	p := config.Provider{
		ID:      "p1",
		Dialect: dialect.Codex,
		Settings: config.ProviderSettings{
			BaseURL:      "https://snake.example.com",
			BaseURLCamel: "https://camel.example.com",
			APIEndpoint:  "https://endpoint.example.com",
		},
	}

	got, err := ExtractBaseURL(p)
	require.NoError(t, err)
	require.Equal(t, "https://snake.example.com", got)
}

func TestExtractAuth_AcceptsCamelCaseAPIKeyAlias(t *testing.T) {
	p := config.Provider{
		ID:      "p1",
		Dialect: dialect.Claude,
		Settings: config.ProviderSettings{
			APIKeyCamel: "camel-key",
		},
	}

	auth, ok := ExtractAuth(p)
	require.True(t, ok)
	require.Equal(t, "camel-key", auth.APIKey)
	require.Equal(t, AuthAnthropic, auth.Strategy)
}

func TestExtractAuth_NoKeyAnywhereReturnsFalse(t *testing.T) {
	p := config.Provider{ID: "p1", Dialect: dialect.Claude}

	_, ok := ExtractAuth(p)
	require.False(t, ok)
}
