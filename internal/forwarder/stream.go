package forwarder

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/logstore"
	"github.com/cc-switch/proxy/internal/proxyerr"
	"github.com/cc-switch/proxy/internal/transform"
	"github.com/cc-switch/proxy/internal/usage"
)

// handleStreamingResponse implements SPEC_FULL.md §4.I step 10: relay
// an SSE response to the client as it arrives, rewriting frames through
// the registered transformer when the provider needs one, and tapping
// the byte stream to accumulate usage without ever buffering it whole.
func (f *Forwarder) handleStreamingResponse(
	ctx context.Context,
	w http.ResponseWriter,
	rc *RequestContext,
	provider config.Provider,
	resp *http.Response,
	xform transform.Transformer,
	transformStreaming bool,
	originalModel, mappedModel string,
) error {
	decoded, err := decompressReader(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return &proxyerr.TransportError{Provider: provider.ID, Err: err}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(resp.StatusCode)

	flusher, _ := w.(http.Flusher)
	acc := usage.NewStreamAccumulator(rc.Dialect)

	// The copy loop blocks on a synchronous Read, which a bare
	// ctx.Done() check between iterations can't interrupt. Pair it with
	// a watcher goroutine that closes the upstream body the moment the
	// request context ends (client disconnect or timeout), unblocking
	// the read; both run under one errgroup so the copy loop's error is
	// what callers see.
	watchCtx, stopWatch := context.WithCancel(ctx)

	g := new(errgroup.Group)
	var streamErr error

	g.Go(func() error {
		<-watchCtx.Done()
		if ctx.Err() != nil {
			resp.Body.Close()
		}
		return nil
	})

	g.Go(func() error {
		defer stopWatch()

		if xform != nil && transformStreaming {
			streamErr = xform.TransformStream(ctx, decoded, flushWriter{w, flusher}, acc.Feed)
		} else {
			streamErr = passthroughSSE(ctx, decoded, flushWriter{w, flusher}, acc)
		}
		return streamErr
	})

	_ = g.Wait()

	tokens, ok := acc.Result()
	if !ok {
		tokens = usage.EstimateFallback(mappedModel, requestText(rc.OriginalBody), "")
	}

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

	return streamErr
}

// flushWriter flushes the underlying ResponseWriter after every write so
// SSE clients see each event as it is produced rather than buffered
// until the handler returns.
type flushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if fw.f != nil {
		fw.f.Flush()
	}
	return n, err
}

// passthroughSSE relays a same-dialect stream byte-for-byte while
// tapping each "event:"/"data:" pair into acc, used whenever no format
// transform applies to this provider.
func passthroughSSE(ctx context.Context, upstream io.Reader, downstream io.Writer, acc *usage.StreamAccumulator) error {
	scanner := bufio.NewScanner(upstream)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var pendingEvent string

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

		if _, err := io.WriteString(downstream, line+"\n"); err != nil {
			return &proxyerr.StreamError{Err: err}
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			pendingEvent = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload != "" && payload != "[DONE]" {
				acc.Feed(pendingEvent, []byte(payload))
			}
		case line == "":
			pendingEvent = ""
		}
	}

	if err := scanner.Err(); err != nil {
		return &proxyerr.StreamError{Err: err}
	}

	return nil
}
