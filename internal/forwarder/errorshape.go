package forwarder

import (
	"encoding/json"
	"net/http"

	"github.com/cc-switch/proxy/internal/dialect"
	"github.com/cc-switch/proxy/internal/proxyerr"
)

// writeErrorResponse shapes err into the dialect-appropriate error body
// and writes it with the matching HTTP status.
func writeErrorResponse(w http.ResponseWriter, d dialect.Dialect, err error) {
	status := http.StatusInternalServerError
	message := err.Error()
	kind := "internal_error"

	if pe, ok := err.(proxyerr.ProxyError); ok {
		status = pe.HTTPStatus()
		kind = pe.Kind()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	switch d {
	case dialect.Claude:
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type": "error",
			"error": map[string]any{
				"type":    kind,
				"message": message,
			},
		})
	default:
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": message,
				"type":    kind,
				"code":    status,
			},
		})
	}
}
