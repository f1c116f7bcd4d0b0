// Package usage extracts token counts from upstream responses, per
// dialect and per streaming-vs-not, and falls back to tokenizer-based
// estimation when upstream omits usage entirely.
package usage

import (
	"encoding/json"

	"github.com/pkoukk/tiktoken-go"

	"github.com/cc-switch/proxy/internal/dialect"
)

// TokenUsage is the value type persisted by the request logger.
type TokenUsage struct {
	InputTokens          int `json:"input_tokens"`
	OutputTokens         int `json:"output_tokens"`
	CacheReadTokens      int `json:"cache_read_tokens,omitempty"`
	CacheCreationTokens  int `json:"cache_creation_tokens,omitempty"`
}

// ParseNonStream extracts usage from a complete (non-streaming)
// response body for the given dialect. ok is false if no usage object
// was present at all.
func ParseNonStream(d dialect.Dialect, body []byte) (TokenUsage, bool) {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return TokenUsage{}, false
	}

	switch d {
	case dialect.Claude, dialect.Codex:
		return parseAnthropicLikeUsage(parsed)
	case dialect.Gemini:
		return parseGeminiUsage(parsed)
	default:
		return TokenUsage{}, false
	}
}

func parseAnthropicLikeUsage(parsed map[string]any) (TokenUsage, bool) {
	raw, ok := parsed["usage"].(map[string]any)
	if !ok {
		return TokenUsage{}, false
	}
	if _, openAIShape := raw["prompt_tokens"]; openAIShape {
		return parseOpenAIUsage(parsed)
	}

	u := TokenUsage{
		InputTokens:         intField(raw, "input_tokens"),
		OutputTokens:        intField(raw, "output_tokens"),
		CacheReadTokens:     intField(raw, "cache_read_input_tokens"),
		CacheCreationTokens: intField(raw, "cache_creation_input_tokens"),
	}

	return u, true
}

// parseOpenAIUsage handles the OpenAI/OpenRouter usage shape
// (prompt_tokens/completion_tokens) for responses that reached this
// path via a Claude/Codex-dialect endpoint pointed at an OpenAI-shaped
// provider without a registered response transformer.
func parseOpenAIUsage(parsed map[string]any) (TokenUsage, bool) {
	raw, ok := parsed["usage"].(map[string]any)
	if !ok {
		return TokenUsage{}, false
	}

	u := TokenUsage{
		InputTokens:  intField(raw, "prompt_tokens"),
		OutputTokens: intField(raw, "completion_tokens"),
	}

	if details, ok := raw["prompt_tokens_details"].(map[string]any); ok {
		u.CacheReadTokens = intField(details, "cached_tokens")
	}

	return u, true
}

func parseGeminiUsage(parsed map[string]any) (TokenUsage, bool) {
	raw, ok := parsed["usageMetadata"].(map[string]any)
	if !ok {
		return TokenUsage{}, false
	}

	return TokenUsage{
		InputTokens:         intField(raw, "promptTokenCount"),
		OutputTokens:        intField(raw, "candidatesTokenCount"),
		CacheReadTokens:     intField(raw, "cachedContentTokenCount"),
	}, true
}

func intField(m map[string]any, key string) int {
	v, ok := m[key].(float64)
	if !ok {
		return 0
	}
	return int(v)
}

// EstimateFallback tokenizes requestText/responseText with tiktoken-go
// when upstream omitted a usage object entirely, so a log record is
// never left with zero usage purely due to upstream omission.
func EstimateFallback(model, requestText, responseText string) TokenUsage {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return TokenUsage{}
		}
	}

	return TokenUsage{
		InputTokens:  len(enc.Encode(requestText, nil, nil)),
		OutputTokens: len(enc.Encode(responseText, nil, nil)),
	}
}
