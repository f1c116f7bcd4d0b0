package forwarder

import (
	"io"
	"net/http"
	"time"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/logstore"
	"github.com/cc-switch/proxy/internal/proxyerr"
	"github.com/cc-switch/proxy/internal/transform"
	"github.com/cc-switch/proxy/internal/usage"
)

// handleNonStreamResponse implements SPEC_FULL.md §4.I step 9: read the
// full upstream body, transform it back to the client dialect if
// needed, extract or estimate usage, log the request, and relay the
// body to the client untouched otherwise.
func (f *Forwarder) handleNonStreamResponse(
	w http.ResponseWriter,
	rc *RequestContext,
	provider config.Provider,
	resp *http.Response,
	xform transform.Transformer,
	originalModel, mappedModel string,
) error {
	decoded, err := decompressReader(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return &proxyerr.TransportError{Provider: provider.ID, Err: err}
	}

	raw, err := io.ReadAll(decoded)
	if err != nil {
		return &proxyerr.TransportError{Provider: provider.ID, Err: err}
	}

	outBody := raw
	if xform != nil {
		outBody, err = xform.TransformResponse(raw)
		if err != nil {
			return &proxyerr.TransformError{Stage: "response", Reason: "non-stream body", Err: err}
		}
	}

	tokens, ok := usage.ParseNonStream(rc.Dialect, outBody)
	if !ok {
		tokens = usage.EstimateFallback(mappedModel, requestText(rc.OriginalBody), string(outBody))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, writeErr := w.Write(outBody)

	f.logs.Append(logstore.Record{
		RequestID:     rc.RequestID,
		ProviderID:    provider.ID,
		Dialect:       rc.Dialect,
		OriginalModel: originalModel,
		MappedModel:   mappedModel,
		Usage:         tokens,
		LatencyMS:     time.Since(rc.StartedAt).Milliseconds(),
		HTTPStatus:    resp.StatusCode,
		Timestamp:     time.Now(),
	})

	if writeErr != nil {
		return &proxyerr.StreamError{Err: writeErr}
	}

	return nil
}

// requestText extracts a rough text representation of the request body
// for the token-estimation fallback, favoring the common "messages"/
// "contents" shapes without fully re-deriving the dialect's schema.
func requestText(body map[string]any) string {
	if msgs, ok := body["messages"].([]any); ok {
		return flattenAnyText(msgs)
	}
	if contents, ok := body["contents"].([]any); ok {
		return flattenAnyText(contents)
	}
	if prompt, ok := body["prompt"].(string); ok {
		return prompt
	}
	return ""
}

func flattenAnyText(items []any) string {
	var out []byte
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if content, ok := m["content"].(string); ok {
			out = append(out, content...)
			out = append(out, '\n')
		}
	}
	return string(out)
}
