package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/cc-switch/proxy/internal/bodyfilter"
	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/dialect"
	"github.com/cc-switch/proxy/internal/failover"
	"github.com/cc-switch/proxy/internal/httpclient"
	"github.com/cc-switch/proxy/internal/logstore"
	"github.com/cc-switch/proxy/internal/modelmapper"
	"github.com/cc-switch/proxy/internal/proxyerr"
	"github.com/cc-switch/proxy/internal/providers"
	"github.com/cc-switch/proxy/internal/rectifier"
	"github.com/cc-switch/proxy/internal/router"
	"github.com/cc-switch/proxy/internal/transform"
)

// maxRoutingAttempts is a fixed upper bound on the re-route loop, so a
// pathological config can never spin forever. Each provider is tried at
// most once per request regardless, since a failed provider is excluded
// from later selections.
const maxRoutingAttempts = 16

// Forwarder is the orchestrator wiring components A-H plus the shared
// HTTP client (K) into the full request lifecycle described in
// SPEC_FULL.md §4.I.
type Forwarder struct {
	cfg          *config.Manager
	adapters     *providers.Registry
	transformers *transform.Registry
	rt           *router.Router
	failoverMgr  *failover.Manager
	client       *httpclient.Client
	logs         *logstore.Store
	logger       *slog.Logger
}

// New builds a Forwarder from its dependencies.
func New(
	cfg *config.Manager,
	adapters *providers.Registry,
	transformers *transform.Registry,
	rt *router.Router,
	failoverMgr *failover.Manager,
	client *httpclient.Client,
	logs *logstore.Store,
	logger *slog.Logger,
) *Forwarder {
	return &Forwarder{
		cfg:          cfg,
		adapters:     adapters,
		transformers: transformers,
		rt:           rt,
		failoverMgr:  failoverMgr,
		client:       client,
		logs:         logs,
		logger:       logger,
	}
}

// Handle runs the full lifecycle for one client request arriving on a
// dialect-scoped endpoint.
func (f *Forwarder) Handle(w http.ResponseWriter, r *http.Request, d dialect.Dialect, endpoint string) {
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		writeErrorResponse(w, d, &proxyerr.ConfigError{Reason: fmt.Sprintf("read request body: %v", err)})
		return
	}

	var body map[string]any
	if err := json.Unmarshal(rawBody, &body); err != nil {
		writeErrorResponse(w, d, &proxyerr.ConfigError{Reason: fmt.Sprintf("invalid JSON body: %v", err)})
		return
	}

	rc := NewRequestContext(d, endpoint, body, false)
	snapshot := f.cfg.Snapshot()

	f.run(r.Context(), w, r, rc, snapshot)
}

func (f *Forwarder) run(ctx context.Context, w http.ResponseWriter, clientReq *http.Request, rc *RequestContext, snapshot *config.Config) {
	adapter, ok := f.adapters.Get(rc.Dialect)
	if !ok {
		writeErrorResponse(w, rc.Dialect, &proxyerr.ConfigError{Reason: fmt.Sprintf("no adapter for dialect %q", rc.Dialect)})
		return
	}

	for attempt := 0; attempt < maxRoutingAttempts; attempt++ {
		provider, err := f.rt.SelectProvider(snapshot, rc.Dialect, rc.FailedProviderIDs)
		if err != nil {
			writeErrorResponse(w, rc.Dialect, err)
			return
		}

		result, retry, err := f.attempt(ctx, w, clientReq, rc, snapshot, adapter, provider)
		if err != nil {
			writeErrorResponse(w, rc.Dialect, err)
			return
		}

		if retry {
			f.cfg.Health().RecordFailure(provider.ID, string(rc.Dialect), lastFailureText(result))
			rc.FailedProviderIDs[provider.ID] = struct{}{}
			continue
		}

		f.cfg.Health().RecordSuccess(provider.ID, string(rc.Dialect))

		if currentID, hasCurrent := snapshot.CurrentProviderID(rc.Dialect); !hasCurrent || currentID != provider.ID {
			if _, err := f.failoverMgr.TrySwitch(rc.Dialect, provider.ID, "failover"); err != nil {
				f.logger.Warn("failover promotion failed", "provider", provider.ID, "error", err)
			}
		}

		return
	}

	writeErrorResponse(w, rc.Dialect, &proxyerr.NoAvailableProvider{Dialect: string(rc.Dialect)})
}

type attemptOutcome struct {
	statusCode int
	bodySnippet string
}

func lastFailureText(o *attemptOutcome) string {
	if o == nil {
		return ""
	}
	return fmt.Sprintf("status=%d body=%s", o.statusCode, o.bodySnippet)
}

// attempt sends one request to provider and returns (outcome, retry,
// terminalErr). retry=true means the caller should mark this provider
// failed and re-route; terminalErr is non-nil only for errors that must
// be surfaced to the client immediately.
func (f *Forwarder) attempt(
	ctx context.Context,
	w http.ResponseWriter,
	clientReq *http.Request,
	rc *RequestContext,
	snapshot *config.Config,
	adapter providers.Adapter,
	provider config.Provider,
) (*attemptOutcome, bool, error) {
	mappedBody, originalModel, mappedModel := modelmapper.MapModel(rc.OriginalBody, provider)
	filteredAny := bodyfilter.FilterPrivate(mappedBody)
	filtered, _ := filteredAny.(map[string]any)

	outBody, err := json.Marshal(filtered)
	if err != nil {
		return nil, false, &proxyerr.ConfigError{Provider: provider.ID, Reason: "marshal filtered body: " + err.Error()}
	}

	endpoint := rc.OriginalEndpoint
	var xform transform.Transformer
	var respXform transform.Transformer
	needsTransform := adapter.NeedsTransform(provider)
	transformStreaming := true

	if needsTransform {
		source, target, streamingOK := resolveFormats(provider)
		transformStreaming = streamingOK

		t, ok := f.transformers.Get(source, target)
		if !ok {
			f.logger.Warn("no transformer registered for resolved formats, passing through untransformed",
				"provider", provider.ID, "source", source, "target", target)
		} else {
			xform = t
			outBody, err = xform.TransformRequest(outBody)
			if err != nil {
				return nil, false, err
			}
			endpoint = xform.TransformEndpoint(endpoint)
			// The upstream answers in the target format, so the response
			// leg uses the transformer registered for the reverse pair.
			if back, ok := f.transformers.Get(target, source); ok {
				respXform = back
			}
		}
	}

	baseURL, err := adapter.ExtractBaseURL(provider)
	if err != nil {
		return nil, false, &proxyerr.ConfigError{Provider: provider.ID, Reason: err.Error()}
	}

	url := adapter.BuildURL(baseURL, endpoint)

	auth, ok := adapter.ExtractAuth(provider)
	if !ok {
		return nil, false, &proxyerr.ConfigError{Provider: provider.ID, Reason: "no API key configured"}
	}

	headers := buildOutboundHeaders(clientReq, adapter, auth, provider)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(outBody))
	if err != nil {
		return nil, false, &proxyerr.ConfigError{Provider: provider.ID, Reason: err.Error()}
	}
	req.Header = headers

	resp, err := f.client.Get().Do(req)
	if err != nil {
		return nil, true, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		w.Header().Set("cc-switch-provider", provider.ID)

		if rc.IsStream {
			if err := f.handleStreamingResponse(ctx, w, rc, provider, resp, respXform, transformStreaming, originalModel, mappedModel); err != nil {
				return nil, false, err
			}
			return &attemptOutcome{statusCode: resp.StatusCode}, false, nil
		}

		if err := f.handleNonStreamResponse(w, rc, provider, resp, respXform, originalModel, mappedModel); err != nil {
			return nil, false, err
		}
		return &attemptOutcome{statusCode: resp.StatusCode}, false, nil
	}

	// Non-2xx: read the body once so both the rectifier detector and
	// the eventual failure record can see it.
	decoded, err := decompressReader(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return nil, true, nil
	}
	errBody, _ := io.ReadAll(decoded)

	retried, rerr := f.tryRectifiers(ctx, rc, provider, resp.StatusCode, string(errBody))
	if rerr != nil {
		return nil, false, rerr
	}
	if retried {
		return f.attempt(ctx, w, clientReq, rc, snapshot, adapter, provider)
	}

	return &attemptOutcome{statusCode: resp.StatusCode, bodySnippet: snippet(errBody)}, true, nil
}

func snippet(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max])
	}
	return string(b)
}

// tryRectifiers runs every enabled, not-yet-applied rectifier's
// detector against the error body. If one matches and its
// preconditions hold, it mutates rc.OriginalBody in place and reports
// retried=true so the caller replays to the same provider.
func (f *Forwarder) tryRectifiers(ctx context.Context, rc *RequestContext, provider config.Provider, statusCode int, bodyText string) (retried bool, terminalErr error) {
	cfg := f.cfg.Snapshot()

	for _, rec := range rectifier.Registry() {
		if rc.RectifierApplied[rec.Name()] {
			continue
		}
		if !rec.Enabled(cfg.Rectifier) {
			continue
		}
		if !rec.Detect(statusCode, bodyText) {
			continue
		}

		changed, err := rec.Mutate(rc.OriginalBody)
		rc.RectifierApplied[rec.Name()] = true

		if err != nil {
			var skipped *proxyerr.RectifierSkipped
			if errors.As(err, &skipped) {
				f.logger.Warn("rectifier skipped", "rectifier", rec.Name(), "reason", skipped.Reason)
				return false, nil
			}
			return false, err
		}

		if !changed {
			return false, nil
		}

		return true, nil
	}

	return false, nil
}

// resolveFormats determines the (source, target) transform pair and
// whether streaming rewriting should run, from the provider's meta
// (explicit) or the legacy Claude+OpenRouter trigger (implicit).
func resolveFormats(p config.Provider) (source, target transform.Format, transformStreaming bool) {
	if ft := p.Meta.FormatTransform; ft != nil && ft.Enabled {
		src, srcOK := transform.ParseFormat(ft.SourceFormat)
		tgt, tgtOK := transform.ParseFormat(ft.TargetFormat)
		if srcOK && tgtOK {
			return src, tgt, ft.TransformStreaming
		}
		// Unknown format strings disable transformation with a
		// warning rather than silently defaulting.
		return "", "", false
	}

	// Legacy heuristic: Claude dialect pointed at an OpenRouter host.
	return transform.FormatAnthropic, transform.FormatOpenAI, true
}
