// Package logstore is the request log store (component Q): an
// in-memory ring buffer the /status endpoint reads from, plus an
// optional JSON-Lines file sink for durability across restarts.
package logstore

import (
	"time"

	"github.com/cc-switch/proxy/internal/dialect"
	"github.com/cc-switch/proxy/internal/usage"
)

// Record is one logged request, written once by the forwarder/usage
// logger (component J) at request end.
type Record struct {
	RequestID     string          `json:"request_id"`
	ProviderID    string          `json:"provider_id"`
	Dialect       dialect.Dialect `json:"dialect"`
	OriginalModel string          `json:"original_model"`
	MappedModel   string          `json:"mapped_model"`
	Usage         usage.TokenUsage `json:"usage"`
	LatencyMS     int64           `json:"latency_ms"`
	HTTPStatus    int             `json:"http_status"`
	ErrorClass    string          `json:"error_class,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}
