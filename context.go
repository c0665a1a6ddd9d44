package cachegate

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/relaycache/cachegate/metrics"
	"github.com/relaycache/cachegate/storage"
)

// Context is the cache's decision core: one instance evaluates exactly one
// request through Call, recording which transitions fired along the way so
// Performed can be inspected afterward.
//
// A Context is built fresh per request by Gateway; it carries no state
// across calls and is safe to construct cheaply and discard.
type Context struct {
	meta   storage.MetaStore
	entity storage.EntityStore
	origin Origin
	log    *Logger

	collector metrics.Collector
	now       func() time.Time

	mu     sync.Mutex
	events eventSet
}

// NewContext builds a Context over the given MetaStore, EntityStore and
// Origin.
func NewContext(meta storage.MetaStore, entity storage.EntityStore, origin Origin, opts ...ContextOption) *Context {
	c := &Context{
		meta:      meta,
		entity:    entity,
		origin:    origin,
		now:       time.Now,
		collector: metrics.DefaultCollector,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.collector == nil {
		c.collector = metrics.DefaultCollector
	}
	return c
}

// Performed reports whether the named transition fired during the most
// recent Call.
func (c *Context) Performed(e Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events.has(e)
}

func (c *Context) record(e Event) {
	c.mu.Lock()
	c.events.record(e)
	c.mu.Unlock()
	if c.log != nil {
		c.log.Trace("%s", e)
	}
}

// Call processes req through the cache and returns the response to deliver:
// pass-through for non-GET/HEAD requests and requests carrying Authorization
// or Cookie; lookup against the MetaStore
// with Vary-aware candidate matching; a hit serving the stored body straight
// from the EntityStore; a miss or forced revalidation fetching (and, where
// possible, validating) against Origin; and a store step persisting any
// newly cacheable response before delivery.
func (c *Context) Call(ctx context.Context, req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.events = 0
	c.mu.Unlock()

	if req.Method != http.MethodGet && req.Method != http.MethodHead || isPrivateRequest(req) {
		c.record(EventPass)
		return c.fetch(ctx, req)
	}

	key := cacheKey(req)

	c.record(EventLookup)
	candidates, err := c.meta.Lookup(ctx, key)
	if err != nil {
		c.record(EventError)
		if c.log != nil {
			c.log.Warn("lookup failed for %p: %p", key, err)
		}
		candidates = nil
	}

	entry, found := c.selectCandidate(candidates, req)

	if !found {
		c.record(EventMiss)
		if requestOnlyIfCached(req) {
			return newGatewayTimeoutResponse(req), nil
		}
		return c.fetchAndStore(ctx, req, key, nil)
	}

	now := c.now()
	ce := CacheEntry{entry: entry}

	if requestForcesRevalidation(req) {
		c.record(EventValidate)
		return c.revalidate(ctx, req, key, entry, ce)
	}

	if ce.Fresh(now) || (!mustRevalidate(entry.responseHeaders) && staleButRevalidatable(ce, entry.responseHeaders, now)) {
		c.record(EventHit)
		resp, err := c.deliver(ctx, entry, ce, now)
		if err != nil {
			c.record(EventError)
			if c.log != nil {
				c.log.Info("entity read failed for %p, fetching from origin: %p", key, err)
			}
			if requestOnlyIfCached(req) {
				return newGatewayTimeoutResponse(req), nil
			}
			return c.fetchAndStore(ctx, req, key, nil)
		}
		if !ce.Fresh(now) {
			addWarning(resp.Header, warningResponseIsStale, "Response is stale")
			c.collector.RecordStaleResponse("stale-while-revalidate")
		}
		return resp, nil
	}

	if requestOnlyIfCached(req) {
		return newGatewayTimeoutResponse(req), nil
	}

	if mustRevalidate(entry.responseHeaders) {
		c.record(EventValidate)
		resp, err := c.revalidate(ctx, req, key, entry, ce)
		if err == nil {
			return resp, nil
		}
		c.record(EventError)
		return nil, err
	}

	c.record(EventValidate)
	resp, err := c.revalidate(ctx, req, key, entry, ce)
	if err != nil {
		if staleIfErrorAllowed(ce, entry.responseHeaders, now) {
			c.record(EventError)
			if c.log != nil {
				c.log.Warn("origin error, serving stale under stale-if-error: %p", err)
			}
			stale, dErr := c.deliver(ctx, entry, ce, now)
			if dErr != nil {
				return nil, err
			}
			addWarning(stale.Header, warningDisconnectedOperation, "Disconnected operation")
			c.collector.RecordStaleResponse("stale-if-error")
			return stale, nil
		}
		c.record(EventError)
		return nil, err
	}
	return resp, nil
}

// selectCandidate returns the first candidate (newest first, per MetaStore's
// contract) whose stored request headers satisfy its Vary header against
// req.
func (c *Context) selectCandidate(candidates []storage.Entry, req *http.Request) (storedEntry, bool) {
	for _, raw := range candidates {
		entry := newStoredEntry(raw)
		if varyMatches(entry, req) {
			return entry, true
		}
	}
	return storedEntry{}, false
}

// fetch issues req to Origin directly, with no cache interaction. Used for
// pass-through requests.
func (c *Context) fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	c.record(EventFetch)
	return c.origin.Fetch(ctx, req)
}

// fetchAndStore fetches req from Origin and, if the response qualifies,
// returns it with its body wrapped so the entry is stored once the caller
// has read the body to the end. existing is the prior
// storedEntry being replaced by a revalidation, or the zero value on a
// plain miss.
func (c *Context) fetchAndStore(ctx context.Context, req *http.Request, key string, existing *storedEntry) (*http.Response, error) {
	c.record(EventFetch)
	resp, err := c.origin.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	if !responseCacheable(req, resp) {
		return resp, nil
	}

	return c.store(ctx, req, key, resp)
}

// store tees resp's body into the EntityStore, committing the MetaStore
// entry only once the full body has been consumed, via cachingReadCloser.
func (c *Context) store(ctx context.Context, req *http.Request, key string, resp *http.Response) (*http.Response, error) {
	var buf bytes.Buffer
	body := resp.Body
	resp.Body = &cachingReadCloser{
		rc:  body,
		buf: &buf,
		onEOF: func() {
			c.record(EventStore)
			digest, err := c.entity.Write(ctx, bytes.NewReader(buf.Bytes()))
			if err != nil {
				if c.log != nil {
					c.log.Warn("entity store write failed: %p", err)
				}
				return
			}
			respHeader := resp.Header.Clone()
			respHeader.Set(headerContentDigest, digest)
			respHeader.Set(headerStoredStatus, strconv.Itoa(resp.StatusCode))
			if _, err := parseDate(respHeader); err != nil {
				respHeader.Set("Date", c.now().UTC().Format(http.TimeFormat))
			}
			entry := storedEntry{
				requestHeaders:  varyRequestSubset(req.Header, respHeader),
				responseHeaders: respHeader,
				storedAt:        c.now(),
				digest:          digest,
			}
			if err := c.meta.Store(ctx, key, entry.toStorageEntry()); err != nil {
				if c.log != nil {
					c.log.Warn("metadata store write failed: %p", err)
				}
			}
		},
	}
	return resp, nil
}

// revalidate issues a conditional GET against Origin using entry's
// validators. A 304 response refreshes the stored headers and re-delivers
// the existing body; any other response is treated as a fresh fetch.
func (c *Context) revalidate(ctx context.Context, req *http.Request, key string, entry storedEntry, ce CacheEntry) (*http.Response, error) {
	condReq := cloneRequest(req)
	etag, lastModified := ce.Validators()
	if etag != "" {
		condReq.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		condReq.Header.Set("If-Modified-Since", lastModified)
	}

	resp, err := c.origin.Fetch(ctx, condReq)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusNotModified {
		return c.fetchFreshAfterFailedValidation(ctx, req, key, resp)
	}

	now := c.now()
	merged := entry.responseHeaders.Clone()
	for k, v := range resp.Header {
		merged[k] = v
	}
	merged.Set("Date", resp.Header.Get("Date"))
	if merged.Get("Date") == "" {
		merged.Set("Date", now.UTC().Format(http.TimeFormat))
	}

	refreshed := storedEntry{
		requestHeaders:  entry.requestHeaders,
		responseHeaders: merged,
		storedAt:        now,
		digest:          entry.digest,
	}
	c.record(EventStore)
	if err := c.meta.Store(ctx, key, refreshed.toStorageEntry()); err != nil && c.log != nil {
		c.log.Warn("metadata refresh failed: %p", err)
	}

	return c.deliver(ctx, refreshed, CacheEntry{entry: refreshed}, now)
}

// fetchFreshAfterFailedValidation is used when an origin's conditional
// response is anything other than 304: the origin has effectively replaced
// the resource, so the response is handled exactly like a miss fetch,
// replacing the stale entry.
func (c *Context) fetchFreshAfterFailedValidation(ctx context.Context, req *http.Request, key string, resp *http.Response) (*http.Response, error) {
	c.record(EventFetch)
	if !responseCacheable(req, resp) {
		return resp, nil
	}
	return c.store(ctx, req, key, resp)
}

// deliver reads entry's body out of the EntityStore and builds the response
// to return to the caller, with Age set per RFC 9111 §4.2.3 and the cache's
// own response headers merged on top of the stored ones.
func (c *Context) deliver(ctx context.Context, entry storedEntry, ce CacheEntry, now time.Time) (*http.Response, error) {
	c.record(EventDeliver)
	body, err := c.entity.Read(ctx, entry.digest)
	if err != nil {
		return nil, err
	}

	header := entry.responseHeaders.Clone()
	header.Set(headerAge, formatAge(ce.Age(now)))

	return &http.Response{
		Status:     http.StatusText(statusFromHeader(header)),
		StatusCode: statusFromHeader(header),
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     header,
		Body:       body,
	}, nil
}

// statusFromHeader recovers the stored status code. Entries always store it
// under this internal header so deliver can rebuild an *http.Response
// without a separate status field in storage.Entry.
func statusFromHeader(h http.Header) int {
	if v := h.Get(headerStoredStatus); v != "" {
		if code, ok := parseStatusCode(v); ok {
			return code
		}
	}
	return http.StatusOK
}

// varyRequestSubset copies from reqHeader only the headers named in
// respHeader's Vary, the minimal request-header fingerprint a stored entry
// needs to retain.
func varyRequestSubset(reqHeader, respHeader http.Header) http.Header {
	out := make(http.Header)
	for _, name := range splitVaryHeader(respHeader) {
		name = http.CanonicalHeaderKey(name)
		if name == "*" {
			continue
		}
		if v := reqHeader.Values(name); len(v) > 0 {
			out[name] = v
		}
	}
	return out
}

// cloneRequest returns a shallow copy of req suitable for mutating headers
// on (e.g. adding conditional validators) without affecting the original.
func cloneRequest(req *http.Request) *http.Request {
	clone := req.Clone(req.Context())
	clone.Header = req.Header.Clone()
	return clone
}

// drainDiscardedBody fully reads and closes a response body that the cache
// has decided not to return to the caller, so the underlying connection can
// be reused.
func drainDiscardedBody(rc io.ReadCloser) {
	if rc == nil {
		return
	}
	_, _ = io.Copy(io.Discard, rc)
	_ = rc.Close()
}

// newGatewayTimeoutResponse builds the 504 returned when only-if-cached
// forbids contacting Origin and no usable entry was found.
func newGatewayTimeoutResponse(req *http.Request) *http.Response {
	header := make(http.Header)
	header.Set("Content-Length", "0")
	return &http.Response{
		Status:     http.StatusText(http.StatusGatewayTimeout),
		StatusCode: http.StatusGatewayTimeout,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     header,
		Body:       http.NoBody,
		Request:    req,
	}
}

// cachingReadCloser tees reads from rc into buf, invoking onEOF exactly once
// after the wrapped stream reports io.EOF so a store only ever commits a
// complete body. A caller that closes before draining never fires onEOF.
type cachingReadCloser struct {
	rc        io.ReadCloser
	buf       *bytes.Buffer
	onEOF     func()
	fired     bool
	fireMutex sync.Mutex
}

func (c *cachingReadCloser) Read(p []byte) (int, error) {
	n, err := c.rc.Read(p)
	if n > 0 {
		c.buf.Write(p[:n])
	}
	if err == io.EOF {
		c.fireOnce()
	}
	return n, err
}

func (c *cachingReadCloser) Close() error {
	return c.rc.Close()
}

func (c *cachingReadCloser) fireOnce() {
	c.fireMutex.Lock()
	defer c.fireMutex.Unlock()
	if c.fired {
		return
	}
	c.fired = true
	if c.onEOF != nil {
		c.onEOF()
	}
}
