package anthropicopenai

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/cc-switch/proxy/internal/proxyerr"
)

// OpenAIToAnthropic converts an OpenAI Chat Completions response (and
// its SSE stream) into the Anthropic Messages shape. Request conversion
// in this direction is a no-op passthrough.
type OpenAIToAnthropic struct{}

func (OpenAIToAnthropic) TransformEndpoint(path string) string { return path }

func (OpenAIToAnthropic) TransformRequest(body []byte) ([]byte, error) {
	return body, nil
}

var stopReasonMap = map[string]string{
	"stop":       "end_turn",
	"length":     "max_tokens",
	"tool_calls": "tool_use",
}

func mapStopReason(reason string) string {
	if mapped, ok := stopReasonMap[reason]; ok {
		return mapped
	}
	return reason
}

// TransformResponse implements SPEC_FULL.md §4.C.2.
func (OpenAIToAnthropic) TransformResponse(body []byte) ([]byte, error) {
	if !gjson.ValidBytes(body) {
		return nil, &proxyerr.TransformError{Stage: "openai_to_anthropic.response", Reason: "invalid JSON"}
	}

	root := gjson.ParseBytes(body)

	if errObj := root.Get("error"); errObj.Exists() {
		out, err := json.Marshal(map[string]any{
			"type": "error",
			"error": map[string]any{
				"type":    "api_error",
				"message": errObj.Get("message").String(),
			},
		})
		return out, err
	}

	choice := root.Get("choices.0")
	message := choice.Get("message")
	if !message.Exists() {
		message = choice.Get("delta")
	}

	content, err := buildResponseContent(message)
	if err != nil {
		return nil, err
	}

	usage := map[string]any{
		"input_tokens":  root.Get("usage.prompt_tokens").Int(),
		"output_tokens": root.Get("usage.completion_tokens").Int(),
	}

	out := map[string]any{
		"id":            root.Get("id").String(),
		"type":          "message",
		"role":          "assistant",
		"content":       content,
		"model":         root.Get("model").String(),
		"stop_reason":   mapStopReason(choice.Get("finish_reason").String()),
		"stop_sequence": nil,
		"usage":         usage,
	}

	return json.Marshal(out)
}

func buildResponseContent(message gjson.Result) ([]map[string]any, error) {
	var content []map[string]any

	text := firstNonEmpty(message.Get("content"), message.Get("reasoning"), message.Get("reasoning_content"))
	if text != "" {
		content = append(content, map[string]any{"type": "text", "text": text})
	}

	toolCalls := message.Get("tool_calls")
	if toolCalls.IsArray() {
		var outerErr error
		toolCalls.ForEach(func(_, call gjson.Result) bool {
			argsRaw := call.Get("function.arguments").String()
			if argsRaw == "" {
				argsRaw = "{}"
			}

			var input any
			if err := json.Unmarshal([]byte(argsRaw), &input); err != nil {
				outerErr = &proxyerr.TransformError{
					Stage:  "openai_to_anthropic.response",
					Reason: fmt.Sprintf("unparseable tool_call arguments: %q", argsRaw),
					Err:    err,
				}
				return false
			}

			content = append(content, map[string]any{
				"type":  "tool_use",
				"id":    call.Get("id").String(),
				"name":  call.Get("function.name").String(),
				"input": input,
			})
			return true
		})
		if outerErr != nil {
			return nil, outerErr
		}
	}

	if len(content) == 0 {
		content = append(content, map[string]any{"type": "text", "text": ""})
	}

	return content, nil
}

func firstNonEmpty(candidates ...gjson.Result) string {
	for _, c := range candidates {
		if c.Exists() && c.String() != "" {
			return c.String()
		}
	}
	return ""
}
