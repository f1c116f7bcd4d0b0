// Package handlers adapts the forwarder and the config/log stores into
// the small set of HTTP endpoints the server exposes: one dialect-
// scoped proxy handler per API family, plus the ambient health/status/
// providers endpoints.
package handlers

import (
	"net/http"

	"github.com/cc-switch/proxy/internal/dialect"
	"github.com/cc-switch/proxy/internal/forwarder"
)

// ProxyHandler relays every request on its mount point through the
// forwarder for a single dialect. The client-visible path doubles as
// the upstream endpoint path (every family uses the provider's native
// route shape), so no further resolution is needed here.
type ProxyHandler struct {
	fw *forwarder.Forwarder
	d  dialect.Dialect
}

func NewProxyHandler(fw *forwarder.Forwarder, d dialect.Dialect) *ProxyHandler {
	return &ProxyHandler{fw: fw, d: d}
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.fw.Handle(w, r, h.d, r.URL.Path)
}
