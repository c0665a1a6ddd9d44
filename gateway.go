package cachegate

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/relaycache/cachegate/metrics"
	"github.com/relaycache/cachegate/storage"
)

// Gateway is the HTTP-facing wrapper around Context, kept deliberately
// separate from the cache core: it owns request/response plumbing (serving
// as an http.Handler, or wrapping an http.RoundTripper as a client-side
// cache) while Context owns only the caching decision.
type Gateway struct {
	meta      storage.MetaStore
	entity    storage.EntityStore
	origin    Origin
	log       *Logger
	now       func() time.Time
	collector metrics.Collector

	lastMu sync.Mutex
	last   *Context
}

// NewGateway builds a Gateway serving requests against origin, indexing
// responses in meta/entity.
func NewGateway(meta storage.MetaStore, entity storage.EntityStore, origin Origin, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		meta:      meta,
		entity:    entity,
		origin:    origin,
		now:       time.Now,
		collector: metrics.DefaultCollector,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.collector == nil {
		g.collector = metrics.DefaultCollector
	}
	return g
}

// newContext builds the per-request Context this Gateway hands a request
// to, recording it so LastPerformed can report on it afterward.
func (g *Gateway) newContext() *Context {
	c := NewContext(g.meta, g.entity, g.origin, WithLogger(g.log), WithClock(g.now), WithCollector(g.collector))
	g.lastMu.Lock()
	g.last = c
	g.lastMu.Unlock()
	return c
}

// cacheStatus summarizes which transitions a just-completed Call performed,
// as the coarse label metrics report against: "pass", "hit", "revalidated"
// or "miss", and "unknown" when none of those fired.
func cacheStatus(c *Context) string {
	switch {
	case c.Performed(EventPass):
		return "pass"
	case c.Performed(EventHit):
		return "hit"
	case c.Performed(EventValidate):
		return "revalidated"
	case c.Performed(EventMiss):
		return "miss"
	default:
		return "unknown"
	}
}

// LastPerformed reports whether the named transition fired during the most
// recently completed Call this Gateway drove. It exists for tests and
// diagnostics; concurrent callers of a shared Gateway should prefer
// constructing their own Context via NewContext for per-request isolation.
func (g *Gateway) LastPerformed(e Event) bool {
	g.lastMu.Lock()
	c := g.last
	g.lastMu.Unlock()
	if c == nil {
		return false
	}
	return c.Performed(e)
}

// ServeHTTP implements http.Handler, treating the Gateway as a reverse
// proxy cache in front of Origin.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := g.now()
	c := g.newContext()
	resp, err := c.Call(r.Context(), r)
	if err != nil {
		if g.log != nil {
			g.log.Warn("origin fetch failed for %p: %p", r.URL, err)
		}
		g.collector.RecordHTTPRequest(r.Method, "error", http.StatusBadGateway, g.now().Sub(start))
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	header := w.Header()
	for k, v := range resp.Header {
		header[k] = v
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
	g.collector.RecordHTTPRequest(r.Method, cacheStatus(c), resp.StatusCode, g.now().Sub(start))
}

// Transport returns an http.RoundTripper that serves requests through this
// Gateway's cache, for use as a client-side cache.
func (g *Gateway) Transport() http.RoundTripper {
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		start := g.now()
		c := g.newContext()
		resp, err := c.Call(req.Context(), req)
		if err != nil {
			g.collector.RecordHTTPRequest(req.Method, "error", http.StatusBadGateway, g.now().Sub(start))
			return nil, err
		}
		g.collector.RecordHTTPRequest(req.Method, cacheStatus(c), resp.StatusCode, g.now().Sub(start))
		return resp, nil
	})
}

// Client returns an *http.Client using Transport as its RoundTripper.
func (g *Gateway) Client() *http.Client {
	return &http.Client{Transport: g.Transport()}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }
