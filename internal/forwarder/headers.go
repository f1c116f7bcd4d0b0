package forwarder

import (
	"net/http"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/providers"
)

var copiedClientHeaders = []string{"Accept", "Accept-Encoding", "User-Agent"}

// buildOutboundHeaders implements SPEC_FULL.md §4.I step 7: a clean
// header set built from a narrow client allowlist, the adapter's auth
// headers, and the provider's custom_headers overlay (which wins on a
// name collision except for the protocol-reserved denylist, already
// filtered out by providers.ExtractCustomHeaders).
func buildOutboundHeaders(clientReq *http.Request, adapter providers.Adapter, auth providers.AuthInfo, p config.Provider) http.Header {
	h := http.Header{}

	for _, name := range copiedClientHeaders {
		if v := clientReq.Header.Get(name); v != "" {
			h.Set(name, v)
		}
	}

	h.Set("Content-Type", "application/json")

	req := &http.Request{Header: h}
	adapter.AddAuthHeaders(req, auth)

	for k, v := range providers.ExtractCustomHeaders(p) {
		h.Set(k, v)
	}

	return h
}
