package usage

import (
	"encoding/json"

	"github.com/cc-switch/proxy/internal/dialect"
)

// StreamAccumulator folds per-dialect SSE events into a final
// TokenUsage, without ever buffering the whole stream body.
type StreamAccumulator struct {
	dialect dialect.Dialect
	usage   TokenUsage
	seen    bool
}

// NewStreamAccumulator builds an accumulator for one in-flight request.
func NewStreamAccumulator(d dialect.Dialect) *StreamAccumulator {
	return &StreamAccumulator{dialect: d}
}

// Feed processes one SSE event (event name may be empty if the frame
// carried none) and its data payload.
func (a *StreamAccumulator) Feed(event string, data []byte) {
	switch a.dialect {
	case dialect.Claude:
		a.feedClaude(event, data)
	case dialect.Codex:
		a.feedCodex(event, data)
	case dialect.Gemini:
		a.feedGemini(data)
	}
}

func (a *StreamAccumulator) feedClaude(event string, data []byte) {
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return
	}

	switch event {
	case "message_start":
		msg, _ := parsed["message"].(map[string]any)
		raw, _ := msg["usage"].(map[string]any)
		if raw != nil {
			a.usage.InputTokens = intField(raw, "input_tokens")
			a.usage.CacheReadTokens = intField(raw, "cache_read_input_tokens")
			a.usage.CacheCreationTokens = intField(raw, "cache_creation_input_tokens")
			a.seen = true
		}
	case "message_delta":
		raw, _ := parsed["usage"].(map[string]any)
		if raw != nil {
			a.usage.OutputTokens = intField(raw, "output_tokens")
			a.seen = true
		}
	}
}

func (a *StreamAccumulator) feedCodex(event string, data []byte) {
	if event != "" && event != "response.completed" {
		// Still attempt to parse: some Codex-compatible gateways omit
		// the "event:" line and only set a "type" field in the data.
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return
	}

	typ, _ := parsed["type"].(string)
	if event != "response.completed" && typ != "response.completed" {
		return
	}

	resp, _ := parsed["response"].(map[string]any)
	raw, _ := resp["usage"].(map[string]any)
	if raw == nil {
		return
	}

	a.usage.InputTokens = intField(raw, "input_tokens")
	a.usage.OutputTokens = intField(raw, "output_tokens")
	a.usage.CacheReadTokens = intField(raw, "cache_read_input_tokens")
	a.usage.CacheCreationTokens = intField(raw, "cache_creation_input_tokens")
	a.seen = true
}

func (a *StreamAccumulator) feedGemini(data []byte) {
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return
	}

	raw, _ := parsed["usageMetadata"].(map[string]any)
	if raw == nil {
		return
	}

	a.usage.OutputTokens += intField(raw, "candidatesTokenCount")
	a.usage.InputTokens = intField(raw, "promptTokenCount")
	a.usage.CacheReadTokens = intField(raw, "cachedContentTokenCount")
	a.seen = true
}

// Result returns the accumulated usage and whether anything was
// actually observed.
func (a *StreamAccumulator) Result() (TokenUsage, bool) {
	return a.usage, a.seen
}
