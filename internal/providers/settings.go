// Package providers implements component A (provider settings
// resolution) and component B (per-dialect adapters) from SPEC_FULL.md.
package providers

import (
	"fmt"
	"strings"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/dialect"
)

// baseURLEnvKeys and apiKeyEnvKeys list, per dialect, the env-map keys
// checked in order before falling back to the flat base_url/api_key
// settings fields.
var baseURLEnvKeys = map[dialect.Dialect][]string{
	dialect.Claude: {"ANTHROPIC_BASE_URL"},
	dialect.Codex:  {"OPENAI_BASE_URL"},
	dialect.Gemini: {"GOOGLE_GEMINI_BASE_URL"},
}

var apiKeyEnvKeys = map[dialect.Dialect][]string{
	dialect.Claude: {"ANTHROPIC_AUTH_TOKEN", "ANTHROPIC_API_KEY"},
	dialect.Codex:  {"OPENAI_API_KEY", "OPENROUTER_API_KEY"},
	dialect.Gemini: {"GEMINI_API_KEY"},
}

// protocolReservedHeaders are silently dropped from custom_headers,
// case-insensitively, since the HTTP layer owns them.
var protocolReservedHeaders = map[string]struct{}{
	"connection":          {},
	"host":                 {},
	"content-length":       {},
	"transfer-encoding":    {},
	"keep-alive":           {},
	"proxy-authenticate":   {},
	"proxy-authorization":  {},
	"te":                   {},
	"trailer":              {},
	"upgrade":              {},
}

// ExtractBaseURL resolves a provider's upstream origin: env key first
// (dialect-specific priority order), then the flat base_url fallback.
// The trailing slash is stripped. No further validation is performed.
func ExtractBaseURL(p config.Provider) (string, error) {
	for _, key := range baseURLEnvKeys[p.Dialect] {
		if v, ok := p.Settings.Env[key]; ok && v != "" {
			return strings.TrimSuffix(v, "/"), nil
		}
	}

	if v := p.Settings.ResolvedBaseURL(); v != "" {
		return strings.TrimSuffix(v, "/"), nil
	}

	return "", fmt.Errorf("provider %q: no base URL configured", p.ID)
}

// ExtractAuth resolves the API key and the auth header strategy implied
// by the provider's dialect.
func ExtractAuth(p config.Provider) (AuthInfo, bool) {
	key := ""

	for _, envKey := range apiKeyEnvKeys[p.Dialect] {
		if v, ok := p.Settings.Env[envKey]; ok && v != "" {
			key = v
			break
		}
	}

	if key == "" {
		key = p.Settings.ResolvedAPIKey()
	}

	if key == "" {
		return AuthInfo{}, false
	}

	strategy := AuthBearer
	switch p.Dialect {
	case dialect.Claude:
		strategy = AuthAnthropic
	case dialect.Gemini:
		strategy = AuthGoogle
	case dialect.Codex:
		strategy = AuthBearer
	}

	return AuthInfo{APIKey: key, Strategy: strategy}, true
}

// ExtractCustomHeaders returns a filtered copy of the provider's custom
// headers, dropping protocol-reserved names case-insensitively.
func ExtractCustomHeaders(p config.Provider) map[string]string {
	out := make(map[string]string, len(p.Settings.CustomHeaders))

	for k, v := range p.Settings.CustomHeaders {
		if _, reserved := protocolReservedHeaders[strings.ToLower(k)]; reserved {
			continue
		}
		out[k] = v
	}

	return out
}
