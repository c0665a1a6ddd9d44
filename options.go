package cachegate

import (
	"time"

	"github.com/relaycache/cachegate/metrics"
)

// ContextOption configures a Context at construction.
type ContextOption func(*Context)

// WithLogger attaches a Logger. A nil Logger (the default) discards events.
func WithLogger(l *Logger) ContextOption {
	return func(c *Context) { c.log = l }
}

// WithClock overrides the Context's notion of "now", for deterministic
// freshness tests.
func WithClock(now func() time.Time) ContextOption {
	return func(c *Context) { c.now = now }
}

// WithCollector attaches a metrics.Collector that observes stale deliveries
// this Context makes. A nil Collector (the default) falls back to
// metrics.DefaultCollector.
func WithCollector(m metrics.Collector) ContextOption {
	return func(c *Context) { c.collector = m }
}

// WithCircuitBreaker wraps the Context's Origin in a circuit breaker that
// opens after consecutiveFail consecutive Fetch failures and stays open for
// cooldown before allowing a half-open probe. No retry policy is layered in;
// origin errors still propagate exactly once.
func WithCircuitBreaker(consecutiveFail uint, cooldown time.Duration) ContextOption {
	return func(c *Context) { c.origin = newBreaker(c.origin, consecutiveFail, cooldown) }
}

// GatewayOption configures a Gateway at construction, mirroring Context's
// own functional-option pattern.
type GatewayOption func(*Gateway)

// WithGatewayLogger attaches a Logger shared by every Context the Gateway
// builds.
func WithGatewayLogger(l *Logger) GatewayOption {
	return func(g *Gateway) { g.log = l }
}

// WithGatewayClock overrides the Gateway's notion of "now".
func WithGatewayClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

// WithGatewayCollector attaches a metrics.Collector recording every request
// the Gateway serves, and every stale delivery its Contexts make.
func WithGatewayCollector(m metrics.Collector) GatewayOption {
	return func(g *Gateway) { g.collector = m }
}

// WithGatewayCircuitBreaker wraps the Gateway's Origin in a circuit breaker,
// see WithCircuitBreaker.
func WithGatewayCircuitBreaker(consecutiveFail uint, cooldown time.Duration) GatewayOption {
	return func(g *Gateway) { g.origin = newBreaker(g.origin, consecutiveFail, cooldown) }
}
