// Package rectifier implements the narrow, error-text-driven body
// mutations that let the forwarder recover from known upstream
// validation errors with a single replay.
package rectifier

import "github.com/cc-switch/proxy/internal/config"

// Rectifier detects a specific upstream error signature and mutates the
// original request body in place so it can be replayed once.
type Rectifier interface {
	Name() string
	Enabled(cfg config.RectifierConfig) bool
	Detect(statusCode int, bodyText string) bool
	Mutate(body map[string]any) (changed bool, err error)
}

// Registry returns every rectifier the forwarder should drive, in a
// fixed order: the thinking-budget rectifier first, then the reserved
// signature slot.
func Registry() []Rectifier {
	return []Rectifier{
		&ThinkingBudgetRectifier{},
		&SignatureRectifier{},
	}
}
