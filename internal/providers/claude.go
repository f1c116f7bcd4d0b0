package providers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/dialect"
)

// ClaudeAdapter speaks the Anthropic Messages dialect to clients.
type ClaudeAdapter struct{}

func (a *ClaudeAdapter) Name() dialect.Dialect { return dialect.Claude }

func (a *ClaudeAdapter) ExtractBaseURL(p config.Provider) (string, error) {
	return ExtractBaseURL(p)
}

func (a *ClaudeAdapter) ExtractAuth(p config.Provider) (AuthInfo, bool) {
	return ExtractAuth(p)
}

// isOpenRouterHost matches the legacy OpenRouter compatibility trigger:
// any base URL whose host contains "openrouter.ai".
func isOpenRouterHost(base string) bool {
	u, err := url.Parse(base)
	if err != nil {
		return strings.Contains(strings.ToLower(base), "openrouter.ai")
	}
	return strings.Contains(strings.ToLower(u.Host), "openrouter.ai")
}

// BuildURL implements the Claude rules: OpenRouter always forces
// /v1/chat/completions regardless of the requested endpoint; otherwise
// an already-complete Anthropic/Chat path on base is preserved
// (idempotent), else base and endpoint are concatenated.
func (a *ClaudeAdapter) BuildURL(base, endpoint string) string {
	basePath, baseSuffix := splitURLSuffix(base)

	if isOpenRouterHost(base) {
		return strings.TrimSuffix(basePath, "/") + "/v1/chat/completions" + baseSuffix
	}

	if hasFullPathSuffix(basePath) {
		return base
	}

	_, endpointSuffix := splitURLSuffix(endpoint)
	endpointPath, _ := splitURLSuffix(endpoint)

	suffix := baseSuffix
	if suffix == "" {
		suffix = endpointSuffix
	}

	return joinPath(basePath, endpointPath) + suffix
}

func (a *ClaudeAdapter) AddAuthHeaders(req *http.Request, auth AuthInfo) {
	AddAuthHeaders(req, auth)
}

// NeedsTransform follows the provider's format_transform meta whenever
// it is present (true only when enabled with differing source/target
// formats); a provider without that meta falls back to the legacy
// trigger: a Claude-dialect provider pointed at an OpenRouter host.
func (a *ClaudeAdapter) NeedsTransform(p config.Provider) bool {
	if p.Meta.FormatTransform != nil {
		return NeedsTransformFromMeta(p)
	}

	base, err := ExtractBaseURL(p)
	if err != nil {
		return false
	}

	return isOpenRouterHost(base)
}
