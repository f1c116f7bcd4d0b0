// Package modelmapper rewrites the "model" field of a request body
// according to a provider's configured model/effort mapping table.
package modelmapper

import (
	"fmt"

	"github.com/cc-switch/proxy/internal/config"
)

// MapModel rewrites body["model"] per the provider's
// meta.codex_model_mapping table, if any, and returns the possibly
// mutated body along with the original and mapped model names for
// logging.
//
// Lookup order per SPEC_FULL.md §4.E (model_map wins even when an
// effort is present; this is an intentional divergence from the
// original Rust mapper, recorded in DESIGN.md):
//  1. model_map[original] -> target
//  2. else effort_map["<original>@<effort>"] using reasoning.effort
//  3. else original is kept unchanged
func MapModel(body map[string]any, p config.Provider) (out map[string]any, original, mapped string) {
	modelVal, _ := body["model"].(string)
	original = modelVal
	mapped = modelVal

	mapping := p.Meta.CodexModelMapping
	if mapping == nil || !mapping.Enabled || modelVal == "" {
		return body, original, mapped
	}

	if target, ok := mapping.ModelMap[modelVal]; ok && target != "" {
		mapped = target
	} else if effort := extractEffort(body); effort != "" {
		key := fmt.Sprintf("%s@%s", modelVal, effort)
		if target, ok := mapping.EffortMap[key]; ok && target != "" {
			mapped = target
		}
	}

	if mapped == original {
		return body, original, mapped
	}

	out = make(map[string]any, len(body))
	for k, v := range body {
		out[k] = v
	}
	out["model"] = mapped

	return out, original, mapped
}

func extractEffort(body map[string]any) string {
	reasoning, ok := body["reasoning"].(map[string]any)
	if !ok {
		return ""
	}

	effort, _ := reasoning["effort"].(string)
	return effort
}
