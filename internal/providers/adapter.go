package providers

import (
	"net/http"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/dialect"
)

// Adapter is the per-dialect polymorphism component B describes: base
// URL / auth extraction (delegated to the component A helpers), final
// URL assembly, auth header injection, and the transform-needed
// decision.
type Adapter interface {
	Name() dialect.Dialect

	ExtractBaseURL(p config.Provider) (string, error)
	ExtractAuth(p config.Provider) (AuthInfo, bool)

	// BuildURL assembles the final outbound URL from a resolved base
	// origin and the client-visible endpoint path.
	BuildURL(base, endpoint string) string

	// AddAuthHeaders sets the upstream auth header(s) on req per the
	// strategy carried in auth.
	AddAuthHeaders(req *http.Request, auth AuthInfo)

	// NeedsTransform reports whether this provider's request/response
	// must be rewritten between dialects before/after going upstream.
	NeedsTransform(p config.Provider) bool
}

// AddAuthHeaders is shared across adapters since the strategy, not the
// dialect, determines the header shape.
func AddAuthHeaders(req *http.Request, auth AuthInfo) {
	switch auth.Strategy {
	case AuthAnthropic:
		req.Header.Set("x-api-key", auth.APIKey)
		req.Header.Set("anthropic-version", "2023-06-01")
	case AuthGoogle:
		req.Header.Set("x-goog-api-key", auth.APIKey)
	default:
		req.Header.Set("Authorization", "Bearer "+auth.APIKey)
	}
}

// Registry maps a dialect to its adapter, built once at process start.
type Registry struct {
	adapters map[dialect.Dialect]Adapter
}

// NewRegistry builds the registry with the built-in Claude, Codex, and
// Gemini adapters registered.
func NewRegistry() *Registry {
	r := &Registry{adapters: make(map[dialect.Dialect]Adapter, 3)}

	r.adapters[dialect.Claude] = &ClaudeAdapter{}
	r.adapters[dialect.Codex] = &CodexAdapter{}
	r.adapters[dialect.Gemini] = &GeminiAdapter{}

	return r
}

// Get returns the adapter for a dialect.
func (r *Registry) Get(d dialect.Dialect) (Adapter, bool) {
	a, ok := r.adapters[d]
	return a, ok
}
