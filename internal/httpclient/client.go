// Package httpclient owns the process-wide, hot-reloadable HTTP client
// used for every outbound upstream request.
package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/proxy"
)

const (
	overallTimeout   = 600 * time.Second
	connectTimeout   = 30 * time.Second
	idlePerHost      = 10
	keepAlive        = 60 * time.Second
)

// Client is the shared, mutable outbound HTTP client handle. Readers
// acquire a read lock just long enough to copy the *http.Client
// pointer; writers (Init/UpdateProxy) hold the write lock only while
// swapping it.
type Client struct {
	mu       sync.RWMutex
	client   *http.Client
	proxyURL string
}

// New builds a Client with no upstream proxy configured.
func New() *Client {
	c := &Client{}
	c.client = buildClient(nil)
	return c
}

// Init configures an initial upstream proxy (http/https/socks5); an
// empty string means direct connection.
func (c *Client) Init(proxyURL string) error {
	return c.UpdateProxy(proxyURL)
}

// UpdateProxy swaps in a new *http.Client built against proxyURL,
// without dropping requests already in flight against the old one. An
// invalid scheme returns an error and leaves the previous client
// intact.
func (c *Client) UpdateProxy(proxyURL string) error {
	var parsed *url.URL

	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return fmt.Errorf("invalid proxy URL: %w", err)
		}

		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
		}

		parsed = u
	}

	next := buildClient(parsed)

	c.mu.Lock()
	c.client = next
	c.proxyURL = proxyURL
	c.mu.Unlock()

	return nil
}

// Get returns the current *http.Client to issue a request against.
func (c *Client) Get() *http.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// CurrentProxyURL returns the configured proxy URL with any embedded
// credentials masked to scheme+host+port, for safe logging.
func (c *Client) CurrentProxyURL() (string, bool) {
	c.mu.RLock()
	raw := c.proxyURL
	c.mu.RUnlock()

	if raw == "" {
		return "", false
	}

	return maskProxyURL(raw), true
}

func maskProxyURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}

	u.User = nil
	return u.Scheme + "://" + u.Host
}

func buildClient(proxyURL *url.URL) *http.Client {
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: keepAlive,
	}

	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConnsPerHost: idlePerHost,
		IdleConnTimeout:     90 * time.Second,
	}

	switch {
	case proxyURL == nil:
		transport.Proxy = http.ProxyFromEnvironment
	case proxyURL.Scheme == "socks5":
		// net/http has no native SOCKS5 proxy support; dial through one
		// explicitly instead of setting the Proxy field.
		socksDialer, err := proxy.FromURL(proxyURL, dialer)
		if err == nil {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return socksDialer.Dial(network, addr)
			}
		}
	default:
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	// Several upstream providers negotiate HTTP/2; configure it
	// explicitly rather than relying on implicit defaults.
	_ = http2.ConfigureTransport(transport)

	return &http.Client{
		Transport: transport,
		Timeout:   overallTimeout,
	}
}
