// Package middleware composes the HTTP middleware chains the server
// wraps around the dialect handlers and the ambient admin endpoints.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/cc-switch/proxy/internal/config"
)

// Middleware wraps a handler with cross-cutting behavior.
type Middleware func(http.Handler) http.Handler

// Chain is an ordered, immutable list of middleware.
type Chain struct {
	middlewares []Middleware
}

// New builds a chain from the given middleware, applied in the order
// given (first listed runs first).
func New(middlewares ...Middleware) Chain {
	return Chain{middlewares: middlewares}
}

// Then appends more middleware to the chain, returning a new Chain.
func (c Chain) Then(middlewares ...Middleware) Chain {
	return Chain{middlewares: append(append([]Middleware{}, c.middlewares...), middlewares...)}
}

// Handler wraps handler with every middleware in the chain.
func (c Chain) Handler(handler http.Handler) http.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}
	return handler
}

// MiddlewareSet builds the fixed set of middleware once so the server
// can compose chains per route family.
type MiddlewareSet struct {
	Recovery       Middleware
	StatsigBlocker Middleware
	MetricsBlocker Middleware
	Logging        Middleware
	Auth           Middleware
}

// NewMiddlewareSet wires every middleware against its dependencies.
func NewMiddlewareSet(cfg *config.Manager, logger *slog.Logger) MiddlewareSet {
	return MiddlewareSet{
		Recovery:       NewRecoveryMiddleware(logger),
		StatsigBlocker: NewStatsigBlockerMiddleware(logger),
		MetricsBlocker: NewMetricsBlockerMiddleware(logger),
		Logging:        NewLoggingMiddleware(logger),
		Auth:           NewAuthMiddleware(cfg, logger),
	}
}

// ProxyChain is applied to the dialect-scoped proxy routes: recover
// first, then block the two well-known Claude-Code telemetry sinks
// before they ever reach the forwarder, then log. No auth: the forwarder
// discards any client credentials and authenticates upstream with the
// selected provider's own key.
func (ms MiddlewareSet) ProxyChain() Chain {
	return New(
		ms.Recovery,
		ms.StatsigBlocker,
		ms.MetricsBlocker,
		ms.Logging,
	)
}

// AdminChain is applied to /status and /providers: recovery, logging,
// and the admin API key gate (no telemetry blockers).
func (ms MiddlewareSet) AdminChain() Chain {
	return New(
		ms.Recovery,
		ms.Logging,
		ms.Auth,
	)
}

// HealthChain is applied to /health: recovery and logging only.
func (ms MiddlewareSet) HealthChain() Chain {
	return New(
		ms.Recovery,
		ms.Logging,
	)
}
