package providers

import (
	"net/http"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/dialect"
)

// GeminiAdapter speaks the Google Generative Language dialect to
// clients. The format transformer pairs for Gemini are reserved slots
// (SPEC_FULL.md §3/§4.C): NeedsTransform follows the format_transform
// meta alone, and since no transformer is registered for a pair
// involving Gemini, such a request is forwarded untransformed.
type GeminiAdapter struct{}

func (a *GeminiAdapter) Name() dialect.Dialect { return dialect.Gemini }

func (a *GeminiAdapter) ExtractBaseURL(p config.Provider) (string, error) {
	return ExtractBaseURL(p)
}

func (a *GeminiAdapter) ExtractAuth(p config.Provider) (AuthInfo, bool) {
	return ExtractAuth(p)
}

// BuildURL concatenates base and endpoint, then collapses boundary-safe
// "/v1beta/v1beta" and "/v1/v1" duplicates.
func (a *GeminiAdapter) BuildURL(base, endpoint string) string {
	basePath, baseSuffix := splitURLSuffix(base)
	endpointPath, endpointSuffix := splitURLSuffix(endpoint)

	joined := joinPath(basePath, endpointPath)
	joined = collapseSegmentDuplicate(joined, "v1beta")
	joined = collapseSegmentDuplicate(joined, "v1")

	suffix := baseSuffix
	if suffix == "" {
		suffix = endpointSuffix
	}

	return joined + suffix
}

func (a *GeminiAdapter) AddAuthHeaders(req *http.Request, auth AuthInfo) {
	AddAuthHeaders(req, auth)
}

func (a *GeminiAdapter) NeedsTransform(p config.Provider) bool {
	return NeedsTransformFromMeta(p)
}
