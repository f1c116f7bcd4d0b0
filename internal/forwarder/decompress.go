package forwarder

import (
	"compress/gzip"
	"io"

	"github.com/andybalholm/brotli"
)

// decompressReader wraps resp.Body according to Content-Encoding so
// every downstream reader sees plain bytes.
func decompressReader(encoding string, body io.Reader) (io.Reader, error) {
	switch encoding {
	case "gzip":
		return gzip.NewReader(body)
	case "br":
		return brotli.NewReader(body), nil
	default:
		return body, nil
	}
}
