package anthropicopenai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/cc-switch/proxy/internal/proxyerr"
)

// contentBlockState tracks one open Anthropic content block being
// assembled from OpenAI delta fragments.
type contentBlockState struct {
	index         int
	blockType     string // "text" or "tool_use"
	startSent     bool
	stopSent      bool
	toolCallID    string
	toolName      string
	arguments     string
}

// streamState is the per-stream scratch state threaded through one
// TransformStream call.
type streamState struct {
	messageStartSent bool
	messageID        string
	model            string

	textBlock *contentBlockState
	// toolBlocksByID implements "first-seen-id-wins": the OpenAI
	// tool-call id decides which Anthropic block index it owns for the
	// rest of the stream.
	toolBlocksByID map[string]*contentBlockState
	nextIndex      int
}

func newStreamState() *streamState {
	return &streamState{toolBlocksByID: make(map[string]*contentBlockState)}
}

func formatSSEEvent(event string, data any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, raw), nil
}

// TransformStream implements SPEC_FULL.md §4.C.3: a single-pass,
// line-oriented rewriter from OpenAI chat.completion.chunk SSE frames to
// Anthropic SSE events, never buffering the full stream.
func (OpenAIToAnthropic) TransformStream(ctx context.Context, upstream io.Reader, downstream io.Writer, tap func(event string, data []byte)) error {
	scanner := bufio.NewScanner(upstream)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	state := newStreamState()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !scanner.Scan() {
			break
		}

		line := scanner.Text()

		if line == "" {
			// Forward empty keep-alive lines untouched; this also ends a
			// forwarded parse-error line as its own SSE frame.
			if _, werr := io.WriteString(downstream, "\n"); werr != nil {
				return &proxyerr.StreamError{Err: werr}
			}
			continue
		}

		if !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}

		if payload == "[DONE]" {
			break
		}

		var chunk map[string]any
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			// Forward parse-error lines untouched to preserve liveness:
			// some upstreams interleave comment/keepalive lines that
			// aren't valid JSON but that the client still expects to see.
			if _, werr := io.WriteString(downstream, line+"\n"); werr != nil {
				return &proxyerr.StreamError{Err: werr}
			}
			continue
		}

		if err := handleChunk(state, chunk, downstream, tap); err != nil {
			return &proxyerr.StreamError{Err: err}
		}
	}

	if err := scanner.Err(); err != nil {
		return &proxyerr.StreamError{Err: err}
	}

	return closeAllBlocks(state, nil, nil, downstream)
}

func handleChunk(state *streamState, chunk map[string]any, w io.Writer, tap func(string, []byte)) error {
	if id, _ := chunk["id"].(string); id != "" {
		state.messageID = id
	}
	if model, _ := chunk["model"].(string); model != "" {
		state.model = model
	}

	if !state.messageStartSent {
		if err := emitMessageStart(state, chunk, w); err != nil {
			return err
		}
		state.messageStartSent = true
	}

	choices, _ := chunk["choices"].([]any)
	var finishReason string

	if len(choices) > 0 {
		choice, _ := choices[0].(map[string]any)
		delta, _ := choice["delta"].(map[string]any)

		if delta != nil {
			if text, ok := delta["content"].(string); ok && text != "" {
				if err := emitTextDelta(state, text, w); err != nil {
					return err
				}
			}

			if toolCalls, ok := delta["tool_calls"].([]any); ok {
				for _, raw := range toolCalls {
					tc, _ := raw.(map[string]any)
					if tc == nil {
						continue
					}
					if err := handleToolCallDelta(state, tc, w); err != nil {
						return err
					}
				}
			}
		}

		if fr, ok := choice["finish_reason"].(string); ok && fr != "" {
			finishReason = fr
		}
	}

	if finishReason != "" {
		usageRaw, _ := chunk["usage"].(map[string]any)
		if tap != nil {
			// The tap sees the Anthropic usage shape, like the client does.
			var tapUsage map[string]any
			if usageRaw != nil {
				tapUsage = convertUsage(usageRaw)
			}
			raw, _ := json.Marshal(map[string]any{"type": "message_delta", "usage": tapUsage})
			tap("message_delta", raw)
		}
		return closeAllBlocks(state, &finishReason, usageRaw, w)
	}

	return nil
}

// convertUsage maps OpenAI's completion usage fields onto the Anthropic
// usage shape, omitting anything absent from the source chunk.
func convertUsage(usage map[string]any) map[string]any {
	out := make(map[string]any)

	if v, ok := usage["prompt_tokens"]; ok {
		out["input_tokens"] = v
	}
	if v, ok := usage["completion_tokens"]; ok {
		out["output_tokens"] = v
	}
	if details, ok := usage["prompt_tokens_details"].(map[string]any); ok {
		if v, ok := details["cached_tokens"]; ok {
			out["cache_read_input_tokens"] = v
		}
	}
	if v, ok := usage["cache_creation_input_tokens"]; ok {
		out["cache_creation_input_tokens"] = v
	}

	return out
}

func emitMessageStart(state *streamState, chunk map[string]any, w io.Writer) error {
	id := state.messageID
	if id == "" {
		id = "msg_" + uuid.NewString()
	}

	inputTokens := 0
	if usage, ok := chunk["usage"].(map[string]any); ok {
		if v, ok := usage["prompt_tokens"].(float64); ok {
			inputTokens = int(v)
		}
	}

	event, err := formatSSEEvent("message_start", map[string]any{
		"type": "message_start",
		"message": map[string]any{
			"id":      id,
			"type":    "message",
			"role":    "assistant",
			"model":   state.model,
			"content": []any{},
			"usage": map[string]any{
				"input_tokens":  inputTokens,
				"output_tokens": 1,
			},
		},
	})
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, event)
	return err
}

func emitTextDelta(state *streamState, text string, w io.Writer) error {
	if state.textBlock == nil {
		state.textBlock = &contentBlockState{index: state.nextIndex, blockType: "text"}
		state.nextIndex++
	}

	if !state.textBlock.startSent {
		event, err := formatSSEEvent("content_block_start", map[string]any{
			"type":          "content_block_start",
			"index":         state.textBlock.index,
			"content_block": map[string]any{"type": "text", "text": ""},
		})
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, event); err != nil {
			return err
		}
		state.textBlock.startSent = true
	}

	event, err := formatSSEEvent("content_block_delta", map[string]any{
		"type":  "content_block_delta",
		"index": state.textBlock.index,
		"delta": map[string]any{"type": "text_delta", "text": text},
	})
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, event)
	return err
}

// convertToolCallID swaps the "call_" prefix OpenAI uses for the
// "toolu_" prefix Anthropic clients expect.
func convertToolCallID(id string) string {
	if strings.HasPrefix(id, "call_") {
		return "toolu_" + strings.TrimPrefix(id, "call_")
	}
	return id
}

func handleToolCallDelta(state *streamState, tc map[string]any, w io.Writer) error {
	id, _ := tc["id"].(string)
	fn, _ := tc["function"].(map[string]any)

	var block *contentBlockState

	if id != "" {
		var ok bool
		block, ok = state.toolBlocksByID[id]
		if !ok {
			block = &contentBlockState{index: state.nextIndex, blockType: "tool_use", toolCallID: id}
			state.nextIndex++
			state.toolBlocksByID[id] = block
		}
	} else {
		// OpenAI fragments after the first omit the id; find the tool
		// block matching the fragment's index if present, else the most
		// recently created tool block.
		if idxF, ok := tc["index"].(float64); ok {
			for _, b := range state.toolBlocksByID {
				if float64(b.index-firstToolBlockOffset(state)) == idxF {
					block = b
					break
				}
			}
		}
		if block == nil {
			for _, b := range state.toolBlocksByID {
				if block == nil || b.index > block.index {
					block = b
				}
			}
		}
	}

	if block == nil {
		return nil
	}

	if name, ok := fn["name"].(string); ok && name != "" {
		block.toolName = name
	}

	if !block.startSent && block.toolCallID != "" && block.toolName != "" {
		event, err := formatSSEEvent("content_block_start", map[string]any{
			"type":  "content_block_start",
			"index": block.index,
			"content_block": map[string]any{
				"type": "tool_use",
				"id":   convertToolCallID(block.toolCallID),
				"name": block.toolName,
			},
		})
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, event); err != nil {
			return err
		}
		block.startSent = true
	}

	if args, ok := fn["arguments"].(string); ok && args != "" {
		delta := calculateArgumentsDelta(block.arguments, args)
		block.arguments = args

		if delta != "" {
			event, err := formatSSEEvent("content_block_delta", map[string]any{
				"type":  "content_block_delta",
				"index": block.index,
				"delta": map[string]any{"type": "input_json_delta", "partial_json": delta},
			})
			if err != nil {
				return err
			}
			if _, err := io.WriteString(w, event); err != nil {
				return err
			}
		}
	}

	return nil
}

func firstToolBlockOffset(state *streamState) int {
	if state.textBlock != nil {
		return 1
	}
	return 0
}

// calculateArgumentsDelta emits only the suffix when newArgs is an
// incremental extension of oldArgs; otherwise the whole new string.
func calculateArgumentsDelta(oldArgs, newArgs string) string {
	if oldArgs == "" {
		return newArgs
	}
	if strings.HasPrefix(newArgs, oldArgs) {
		return strings.TrimPrefix(newArgs, oldArgs)
	}
	return newArgs
}

func closeAllBlocks(state *streamState, finishReason *string, usageRaw map[string]any, w io.Writer) error {
	if state.textBlock != nil && state.textBlock.startSent && !state.textBlock.stopSent {
		if err := writeBlockStop(w, state.textBlock.index); err != nil {
			return err
		}
		state.textBlock.stopSent = true
	}

	for _, block := range state.toolBlocksByID {
		if block.startSent && !block.stopSent {
			if err := writeBlockStop(w, block.index); err != nil {
				return err
			}
			block.stopSent = true
		}
	}

	if finishReason == nil {
		return nil
	}

	messageDeltaEvent := map[string]any{
		"type":  "message_delta",
		"delta": map[string]any{"stop_reason": mapStopReason(*finishReason), "stop_sequence": nil},
	}
	if usageRaw != nil {
		if usage := convertUsage(usageRaw); len(usage) > 0 {
			messageDeltaEvent["usage"] = usage
		}
	}

	event, err := formatSSEEvent("message_delta", messageDeltaEvent)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, event); err != nil {
		return err
	}

	stopEvent, err := formatSSEEvent("message_stop", map[string]any{"type": "message_stop"})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, stopEvent)
	return err
}

func writeBlockStop(w io.Writer, index int) error {
	event, err := formatSSEEvent("content_block_stop", map[string]any{
		"type":  "content_block_stop",
		"index": index,
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, event)
	return err
}
