package providers

import (
	"net/http"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/dialect"
)

// CodexAdapter speaks the OpenAI-compatible dialect to clients.
type CodexAdapter struct{}

func (a *CodexAdapter) Name() dialect.Dialect { return dialect.Codex }

func (a *CodexAdapter) ExtractBaseURL(p config.Provider) (string, error) {
	return ExtractBaseURL(p)
}

func (a *CodexAdapter) ExtractAuth(p config.Provider) (AuthInfo, bool) {
	return ExtractAuth(p)
}

// BuildURL concatenates base and endpoint, then collapses any "/v1/v1"
// duplicate that lands on a path-segment boundary.
func (a *CodexAdapter) BuildURL(base, endpoint string) string {
	basePath, baseSuffix := splitURLSuffix(base)
	endpointPath, endpointSuffix := splitURLSuffix(endpoint)

	joined := joinPath(basePath, endpointPath)
	joined = collapseSegmentDuplicate(joined, "v1")

	suffix := baseSuffix
	if suffix == "" {
		suffix = endpointSuffix
	}

	return joined + suffix
}

func (a *CodexAdapter) AddAuthHeaders(req *http.Request, auth AuthInfo) {
	AddAuthHeaders(req, auth)
}

func (a *CodexAdapter) NeedsTransform(p config.Provider) bool {
	return NeedsTransformFromMeta(p)
}
