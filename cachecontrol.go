package cachegate

import (
	"net/http"
	"strings"
)

// cacheControl is a parsed set of Cache-Control directive name -> value.
// An empty value means the directive carries no argument (e.g. "no-store").
type cacheControl map[string]string

// has reports whether the directive is present.
func (cc cacheControl) has(name string) bool {
	_, ok := cc[name]
	return ok
}

// parseCacheControl parses the Cache-Control header. The first occurrence
// of a duplicate directive wins; malformed directives are dropped rather
// than rejected.
func parseCacheControl(h http.Header) cacheControl {
	cc := cacheControl{}
	seen := make(map[string]bool)

	for _, part := range strings.Split(h.Get("Cache-Control"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		var directive, value string
		if idx := strings.IndexByte(part, '='); idx >= 0 {
			directive = strings.TrimSpace(part[:idx])
			value = strings.Trim(strings.TrimSpace(part[idx+1:]), `"`)
		} else {
			directive = part
		}
		directive = strings.ToLower(directive)

		if seen[directive] {
			continue
		}
		seen[directive] = true
		cc[directive] = value
	}

	return cc
}

const (
	directiveNoCache              = "no-cache"
	directiveNoStore              = "no-store"
	directiveMaxAge               = "max-age"
	directiveSMaxAge              = "s-maxage"
	directiveMustRevalidate       = "must-revalidate"
	directiveOnlyIfCached         = "only-if-cached"
	directiveStaleWhileRevalidate = "stale-while-revalidate"
	directiveStaleIfError         = "stale-if-error"
	directivePrivate              = "private"
	directivePublic               = "public"
)

// cacheableByDefault is the status-code set that may be cached absent any
// explicit Cache-Control directive. 303 is intentionally absent: a
// redirect-to-see-other is treated as non-cacheable.
var cacheableByDefault = map[int]bool{
	http.StatusOK:                  true, // 200
	http.StatusNonAuthoritativeInfo: true, // 203
	http.StatusMultipleChoices:     true, // 300
	http.StatusMovedPermanently:    true, // 301
	http.StatusFound:               true, // 302
	http.StatusNotFound:            true, // 404
	http.StatusGone:                true, // 410
}

// isCacheableStatus reports whether status is in the cacheable-by-default
// set.
func isCacheableStatus(status int) bool {
	return cacheableByDefault[status]
}
