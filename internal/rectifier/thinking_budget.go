package rectifier

import (
	"strings"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/proxyerr"
)

const (
	maxThinkingBudget     = 32000
	maxTokensValue        = 64000
	minMaxTokensForBudget = 32001
)

// ThinkingBudgetRectifier recovers from the well-known Anthropic
// validation error that rejects a thinking.budget_tokens value below
// 1024, or a max_tokens value too close to the budget.
type ThinkingBudgetRectifier struct{}

func (r *ThinkingBudgetRectifier) Name() string { return "thinking_budget" }

func (r *ThinkingBudgetRectifier) Enabled(cfg config.RectifierConfig) bool {
	return cfg.Enabled && cfg.RequestThinkingBudget
}

// Detect matches a 4xx body mentioning budget_tokens/thinking together
// with one of the known phrasings, or falls back to the looser
// "thinking"+"1024" co-occurrence when budget_tokens isn't mentioned by
// name.
func (r *ThinkingBudgetRectifier) Detect(statusCode int, bodyText string) bool {
	if statusCode < 400 || statusCode >= 500 {
		return false
	}

	lower := strings.ToLower(bodyText)

	mentionsBudget := strings.Contains(lower, "budget_tokens") || strings.Contains(lower, "thinking")
	if !mentionsBudget {
		return false
	}

	phrases := []string{
		"greater than or equal to 1024",
		"at least 1024",
		"less than max_tokens",
	}
	for _, phrase := range phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}

	if !strings.Contains(lower, "budget_tokens") &&
		strings.Contains(lower, "thinking") && strings.Contains(lower, "1024") {
		return true
	}

	return false
}

// Mutate requires thinking.type == "enabled" in the original body. It
// sets thinking.budget_tokens to the max allowed value and bumps
// max_tokens if it's too close to that budget. If nothing actually
// changes, it reports changed=false so the forwarder does not retry
// forever.
func (r *ThinkingBudgetRectifier) Mutate(body map[string]any) (bool, error) {
	thinking, _ := body["thinking"].(map[string]any)
	if thinking == nil {
		return false, &proxyerr.RectifierSkipped{Rectifier: r.Name(), Reason: "no thinking block in request"}
	}

	thinkingType, _ := thinking["type"].(string)
	if thinkingType != "enabled" {
		return false, &proxyerr.RectifierSkipped{Rectifier: r.Name(), Reason: "thinking.type is not \"enabled\""}
	}

	changed := false

	if current, ok := thinking["budget_tokens"].(float64); !ok || current != maxThinkingBudget {
		thinking["budget_tokens"] = float64(maxThinkingBudget)
		changed = true
	}

	maxTokens, _ := body["max_tokens"].(float64)
	if maxTokens < minMaxTokensForBudget {
		body["max_tokens"] = float64(maxTokensValue)
		changed = true
	}

	if !changed {
		return false, nil
	}

	return true, nil
}
