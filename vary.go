package cachegate

import (
	"net/http"
	"strings"
)

// splitVaryHeader splits and trims a comma-separated Vary header value.
func splitVaryHeader(h http.Header) []string {
	raw := h.Get("Vary")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeHeaderValue collapses internal whitespace so that equivalent but
// differently-formatted header values compare equal (RFC 9111 §4.1).
func normalizeHeaderValue(v string) string {
	v = strings.TrimSpace(v)
	var b strings.Builder
	prevSpace := false
	for _, r := range v {
		switch r {
		case ' ', '\t', '\n', '\r':
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
		default:
			b.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.ReplaceAll(b.String(), ", ", ",")
}

// varyMatches reports whether the stored request-header subset of entry
// matches req, given the Vary header recorded on the stored response. A
// stored "Vary: *" never matches (RFC 9111 §4.1).
func varyMatches(entry storedEntry, req *http.Request) bool {
	varyHeaders := splitVaryHeader(entry.responseHeaders)
	for _, h := range varyHeaders {
		if strings.TrimSpace(h) == "*" {
			return false
		}
	}

	for _, h := range varyHeaders {
		h = http.CanonicalHeaderKey(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		reqValue := normalizeHeaderValue(req.Header.Get(h))
		storedValue := normalizeHeaderValue(entry.requestHeaders.Get(h))
		if reqValue != storedValue {
			return false
		}
	}
	return true
}
