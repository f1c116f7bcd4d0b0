package rectifier

import "github.com/cc-switch/proxy/internal/config"

// SignatureRectifier is the second reserved rectifier slot named in
// SPEC_FULL.md §4.F. Its upstream error-text signature is outside this
// module's scope, so it ships as a permanent no-op detector: the
// forwarder still drives it identically to ThinkingBudgetRectifier, so
// a future rectifier can be dropped in here without touching the
// forwarder.
type SignatureRectifier struct{}

func (r *SignatureRectifier) Name() string { return "signature" }

func (r *SignatureRectifier) Enabled(cfg config.RectifierConfig) bool {
	return cfg.Enabled && cfg.RequestThinkingSignature
}

func (r *SignatureRectifier) Detect(statusCode int, bodyText string) bool {
	return false
}

func (r *SignatureRectifier) Mutate(body map[string]any) (bool, error) {
	return false, nil
}
