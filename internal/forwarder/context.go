// Package forwarder implements component I: the request/response
// orchestrator wiring the provider model, adapters, transformers, body
// filter, model mapper, rectifiers, router, failover manager, and the
// shared HTTP client into the full request lifecycle.
package forwarder

import (
	"time"

	"github.com/google/uuid"

	"github.com/cc-switch/proxy/internal/dialect"
)

// RequestContext is constructed once per client request and threaded
// through the whole lifecycle, including retries.
type RequestContext struct {
	Dialect          dialect.Dialect
	OriginalEndpoint string
	OriginalBody     map[string]any
	IsStream         bool
	RequestID        string
	SessionID        string

	FailedProviderIDs map[string]struct{}
	RectifierApplied  map[string]bool

	StartedAt time.Time
}

// NewRequestContext builds a fresh context for one inbound request.
func NewRequestContext(d dialect.Dialect, endpoint string, body map[string]any, isStream bool) *RequestContext {
	streamFlag := isStream
	if v, ok := body["stream"].(bool); ok {
		streamFlag = v
	}

	return &RequestContext{
		Dialect:           d,
		OriginalEndpoint:  endpoint,
		OriginalBody:      body,
		IsStream:          streamFlag,
		RequestID:         uuid.NewString(),
		FailedProviderIDs: make(map[string]struct{}),
		RectifierApplied:  make(map[string]bool),
		StartedAt:         time.Now(),
	}
}
