package rectifier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestThinkingBudgetRectifier_DetectMatchesKnownPhrase(t *testing.T) {
	r := &ThinkingBudgetRectifier{}

	require.True(t, r.Detect(400, "thinking.budget_tokens: Input should be greater than or equal to 1024"))
	require.True(t, r.Detect(400, "Thinking budget tokens must be at least 1024"))
	require.False(t, r.Detect(200, "thinking.budget_tokens: Input should be greater than or equal to 1024"))
	require.False(t, r.Detect(400, "unrelated error"))
}

func TestThinkingBudgetRectifier_DetectLooseFallback(t *testing.T) {
	r := &ThinkingBudgetRectifier{}

	require.True(t, r.Detect(400, "something about thinking and 1024 went wrong"))
}

func TestThinkingBudgetRectifier_MutateSetsBudgetAndMaxTokens(t *testing.T) {
	r := &ThinkingBudgetRectifier{}

	body := map[string]any{
		"thinking":   map[string]any{"type": "enabled", "budget_tokens": float64(512)},
		"max_tokens": float64(1024),
	}

	changed, err := r.Mutate(body)
	require.NoError(t, err)
	require.True(t, changed)

	thinking := body["thinking"].(map[string]any)
	require.Equal(t, float64(maxThinkingBudget), thinking["budget_tokens"])
	require.Equal(t, float64(maxTokensValue), body["max_tokens"])
}

func TestThinkingBudgetRectifier_SkipsWhenThinkingNotEnabled(t *testing.T) {
	r := &ThinkingBudgetRectifier{}

	body := map[string]any{"thinking": map[string]any{"type": "adaptive"}}

	changed, err := r.Mutate(body)
	require.False(t, changed)
	require.Error(t, err)
}

func TestThinkingBudgetRectifier_NoChangeWhenAlreadyAtMax(t *testing.T) {
	r := &ThinkingBudgetRectifier{}

	body := map[string]any{
		"thinking":   map[string]any{"type": "enabled", "budget_tokens": float64(maxThinkingBudget)},
		"max_tokens": float64(maxTokensValue),
	}

	changed, err := r.Mutate(body)
	require.NoError(t, err)
	require.False(t, changed)
}
