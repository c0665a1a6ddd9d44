package cachegate

import (
	"fmt"
	"net/http"
	"strings"
)

// Warning codes RFC 9111 §5.5 defines that a shared cache can attach to a
// served response.
const (
	warningResponseIsStale      = 110
	warningRevalidationFailed   = 111
	warningDisconnectedOperation = 112
	warningHeuristicExpiration  = 113
)

// warningAgent identifies this cache in emitted Warning headers.
const warningAgent = "cachegate"

// addWarning appends a Warning header in the RFC 9111 §5.5 wire format:
// code agent "text". Existing Warning values are preserved; callers may add
// more than one.
func addWarning(h http.Header, code int, text string) {
	h.Add("Warning", fmt.Sprintf("%d %s %q", code, warningAgent, text))
}

// hasWarning reports whether any Warning header value carries the given
// code, used by tests asserting a specific warning was attached.
func hasWarning(h http.Header, code int) bool {
	prefix := fmt.Sprintf("%d ", code)
	for _, v := range h.Values("Warning") {
		if strings.HasPrefix(v, prefix) {
			return true
		}
	}
	return false
}
