// Package anthropicopenai implements the built-in Anthropic<->OpenAI
// transformer pair (component C.1/C.2/C.3), grounded on the reference
// proxy's request/response/stream conversion helpers and reworked
// around gjson/sjson path-addressed JSON surgery instead of bespoke
// type-switch trees.
package anthropicopenai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/cc-switch/proxy/internal/proxyerr"
)

// AnthropicToOpenAI converts an Anthropic Messages request into an
// OpenAI Chat Completions request. Response/stream conversion in this
// direction is a no-op passthrough: no provider targets an
// OpenAI-dialect client with an Anthropic-shaped upstream in this
// module's scope.
type AnthropicToOpenAI struct{}

func (AnthropicToOpenAI) TransformEndpoint(path string) string {
	switch path {
	case "/v1/messages":
		return "/v1/chat/completions"
	default:
		return path
	}
}

func (AnthropicToOpenAI) TransformResponse(body []byte) ([]byte, error) {
	return body, nil
}

// TransformStream is a verbatim passthrough: no provider in this
// module's scope targets an OpenAI-dialect client from an
// Anthropic-shaped streaming upstream.
func (AnthropicToOpenAI) TransformStream(ctx context.Context, upstream io.Reader, downstream io.Writer, tap func(string, []byte)) error {
	_, err := io.Copy(downstream, upstream)
	return err
}

// TransformRequest implements SPEC_FULL.md §4.C.1.
func (AnthropicToOpenAI) TransformRequest(body []byte) ([]byte, error) {
	if !gjson.ValidBytes(body) {
		return nil, &proxyerr.TransformError{Stage: "anthropic_to_openai.request", Reason: "invalid JSON"}
	}

	root := gjson.ParseBytes(body)

	out := []byte("{}")
	var err error

	if model := root.Get("model"); model.Exists() {
		out, err = sjson.SetBytes(out, "model", model.String())
		if err != nil {
			return nil, wrap("set model", err)
		}
	}

	messages := make([]map[string]any, 0)

	if sys := root.Get("system"); sys.Exists() {
		messages = append(messages, systemMessages(sys)...)
	}

	trailingToolMessages := make([]map[string]any, 0)

	root.Get("messages").ForEach(func(_, msg gjson.Result) bool {
		converted, trailing := convertMessage(msg)
		messages = append(messages, converted...)
		trailingToolMessages = append(trailingToolMessages, trailing...)
		return true
	})

	messages = append(messages, trailingToolMessages...)

	msgBytes, err := json.Marshal(messages)
	if err != nil {
		return nil, wrap("marshal messages", err)
	}
	out, err = sjson.SetRawBytes(out, "messages", msgBytes)
	if err != nil {
		return nil, wrap("set messages", err)
	}

	for _, passthrough := range []string{"max_tokens", "temperature", "top_p", "stream"} {
		if v := root.Get(passthrough); v.Exists() {
			out, err = setRaw(out, passthrough, v)
			if err != nil {
				return nil, wrap("set "+passthrough, err)
			}
		}
	}

	if stop := root.Get("stop_sequences"); stop.Exists() {
		out, err = setRaw(out, "stop", stop)
		if err != nil {
			return nil, wrap("set stop", err)
		}
	}

	if tools := root.Get("tools"); tools.IsArray() {
		converted := convertTools(tools)
		toolBytes, err := json.Marshal(converted)
		if err != nil {
			return nil, wrap("marshal tools", err)
		}
		out, err = sjson.SetRawBytes(out, "tools", toolBytes)
		if err != nil {
			return nil, wrap("set tools", err)
		}
	}

	if choice := root.Get("tool_choice"); choice.Exists() {
		out, err = setRaw(out, "tool_choice", choice)
		if err != nil {
			return nil, wrap("set tool_choice", err)
		}
	}

	return out, nil
}

func setRaw(dst []byte, path string, v gjson.Result) ([]byte, error) {
	return sjson.SetRawBytes(dst, path, []byte(v.Raw))
}

func wrap(reason string, err error) error {
	return &proxyerr.TransformError{Stage: "anthropic_to_openai.request", Reason: reason, Err: err}
}

func systemMessages(sys gjson.Result) []map[string]any {
	if sys.Type == gjson.String {
		return []map[string]any{{"role": "system", "content": sys.String()}}
	}

	var out []map[string]any
	if sys.IsArray() {
		sys.ForEach(func(_, el gjson.Result) bool {
			if text := el.Get("text"); text.Exists() {
				out = append(out, map[string]any{"role": "system", "content": text.String()})
			}
			return true
		})
	}
	return out
}

// convertMessage converts one Anthropic message into zero-or-more
// OpenAI messages. tool_result blocks are returned separately so the
// caller can append them after all primary messages, per the "emit a
// separate trailing message" rule.
func convertMessage(msg gjson.Result) (primary []map[string]any, trailing []map[string]any) {
	role := msg.Get("role").String()
	content := msg.Get("content")

	if content.Type == gjson.String {
		return []map[string]any{{"role": role, "content": content.String()}}, nil
	}

	if !content.IsArray() {
		return nil, nil
	}

	var textParts []string
	var toolCalls []map[string]any
	var contentParts []map[string]any

	content.ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").String() {
		case "text":
			text := block.Get("text").String()
			textParts = append(textParts, text)
			contentParts = append(contentParts, map[string]any{"type": "text", "text": text})
		case "image":
			media := block.Get("source.media_type").String()
			data := block.Get("source.data").String()
			contentParts = append(contentParts, map[string]any{
				"type": "image_url",
				"image_url": map[string]any{
					"url": fmt.Sprintf("data:%s;base64,%s", media, data),
				},
			})
		case "tool_use":
			inputRaw := block.Get("input").Raw
			if inputRaw == "" {
				inputRaw = "{}"
			}
			toolCalls = append(toolCalls, map[string]any{
				"id":   block.Get("id").String(),
				"type": "function",
				"function": map[string]any{
					"name":      block.Get("name").String(),
					"arguments": inputRaw,
				},
			})
		case "tool_result":
			trailing = append(trailing, map[string]any{
				"role":         "tool",
				"tool_call_id": block.Get("tool_use_id").String(),
				"content":      flattenToolResultContent(block.Get("content")),
			})
		case "thinking":
			// dropped per spec
		}
		return true
	})

	msgOut := map[string]any{"role": role}

	switch len(contentParts) {
	case 0:
		msgOut["content"] = nil
	case 1:
		if contentParts[0]["type"] == "text" {
			msgOut["content"] = contentParts[0]["text"]
		} else {
			msgOut["content"] = contentParts
		}
	default:
		msgOut["content"] = contentParts
	}

	if len(toolCalls) > 0 {
		msgOut["tool_calls"] = toolCalls
		if len(contentParts) == 0 {
			msgOut["content"] = nil
		}
	}

	return []map[string]any{msgOut}, trailing
}

func flattenToolResultContent(content gjson.Result) string {
	if content.Type == gjson.String {
		return content.String()
	}

	if content.IsArray() {
		var sb []string
		content.ForEach(func(_, el gjson.Result) bool {
			if text := el.Get("text"); text.Exists() {
				sb = append(sb, text.String())
			}
			return true
		})
		out, _ := json.Marshal(sb)
		return string(out)
	}

	return content.Raw
}

func convertTools(tools gjson.Result) []map[string]any {
	var out []map[string]any

	tools.ForEach(func(_, tool gjson.Result) bool {
		if tool.Get("type").String() == "BatchTool" {
			return true
		}

		schema := cleanSchema(tool.Get("input_schema"))

		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        tool.Get("name").String(),
				"description": tool.Get("description").String(),
				"parameters":  schema,
			},
		})
		return true
	})

	return out
}

// cleanSchema recursively removes format:"uri" and recurses through
// properties/items, mirroring the reference proxy's schema sanitizer.
func cleanSchema(schema gjson.Result) any {
	if !schema.IsObject() {
		if schema.Exists() {
			var v any
			_ = json.Unmarshal([]byte(schema.Raw), &v)
			return v
		}
		return map[string]any{}
	}

	out := map[string]any{}

	schema.ForEach(func(key, value gjson.Result) bool {
		k := key.String()

		if k == "format" && value.String() == "uri" {
			return true
		}

		switch k {
		case "properties":
			props := map[string]any{}
			value.ForEach(func(pk, pv gjson.Result) bool {
				props[pk.String()] = cleanSchema(pv)
				return true
			})
			out[k] = props
		case "items":
			out[k] = cleanSchema(value)
		default:
			var v any
			_ = json.Unmarshal([]byte(value.Raw), &v)
			out[k] = v
		}

		return true
	})

	return out
}
