package cachegate

import (
	"net/http"
	"time"
)

// requestForcesRevalidation reports whether the incoming request itself
// forbids serving a cached response without revalidation: Cache-Control:
// no-cache, or the legacy Pragma: no-cache (honored for HTTP/1.0 client
// compatibility).
func requestForcesRevalidation(req *http.Request) bool {
	cc := parseCacheControl(req.Header)
	if cc.has(directiveNoCache) {
		return true
	}
	for _, p := range req.Header.Values("Pragma") {
		if p == "no-cache" {
			return true
		}
	}
	return false
}

// requestOnlyIfCached reports whether the request forbids the gateway from
// contacting the origin at all, failing with 504 instead.
func requestOnlyIfCached(req *http.Request) bool {
	return parseCacheControl(req.Header).has(directiveOnlyIfCached)
}

// isPrivateRequest reports whether req carries per-user credentials
// (Authorization or Cookie) that make its response unsafe to share across
// requesters. Such requests always pass straight to Origin: the gateway
// neither looks them up nor stores anything it fetches on their behalf.
func isPrivateRequest(req *http.Request) bool {
	return req.Header.Get("Authorization") != "" || req.Header.Get("Cookie") != ""
}

// responseCacheable decides whether a freshly fetched origin response may be
// stored at all, combining the status-code default table with request- and
// response-side Cache-Control directives.
func responseCacheable(req *http.Request, resp *http.Response) bool {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return false
	}
	if isPrivateRequest(req) {
		return false
	}
	reqCC := parseCacheControl(req.Header)
	if reqCC.has(directiveNoStore) {
		return false
	}
	respCC := parseCacheControl(resp.Header)
	if respCC.has(directiveNoStore) || respCC.has(directivePrivate) {
		return false
	}
	if !isCacheableStatus(resp.StatusCode) {
		return false
	}
	if _, err := parseDate(resp.Header); err != nil {
		return false
	}
	return true
}

// freshnessLifetime applies the s-maxage override (shared caches per RFC
// 9111 §5.2.2.10) ahead of CacheEntry's own max-age/Expires computation.
func freshnessLifetime(entry CacheEntry, respHeader http.Header) time.Duration {
	cc := parseCacheControl(respHeader)
	if sMaxAge, ok := cc[directiveSMaxAge]; ok {
		if d, err := parseSeconds(sMaxAge); err == nil {
			return d
		}
	}
	return entry.FreshnessLifetime()
}

// staleButRevalidatable reports whether a stale entry may still be served
// directly under stale-while-revalidate (RFC 5861 §3), given how long past
// its freshness lifetime it now is.
func staleButRevalidatable(entry CacheEntry, respHeader http.Header, now time.Time) bool {
	cc := parseCacheControl(respHeader)
	v, ok := cc[directiveStaleWhileRevalidate]
	if !ok {
		return false
	}
	grace, err := parseSeconds(v)
	if err != nil {
		return false
	}
	overage := entry.Age(now) - freshnessLifetime(entry, respHeader)
	return overage <= grace
}

// staleIfErrorAllowed reports whether a stale entry may be served in place
// of an origin error under stale-if-error (RFC 5861 §4).
func staleIfErrorAllowed(entry CacheEntry, respHeader http.Header, now time.Time) bool {
	cc := parseCacheControl(respHeader)
	v, ok := cc[directiveStaleIfError]
	if !ok {
		return false
	}
	grace, err := parseSeconds(v)
	if err != nil {
		return false
	}
	overage := entry.Age(now) - freshnessLifetime(entry, respHeader)
	return overage <= grace
}

// mustRevalidate reports whether the stored response forbids serving it
// stale under any circumstance once expired (RFC 9111 §5.2.2.2/§5.2.2.1).
func mustRevalidate(respHeader http.Header) bool {
	cc := parseCacheControl(respHeader)
	return cc.has(directiveMustRevalidate) || cc.has("proxy-revalidate")
}
