package cachegate

import (
	"net/http"
)

// cacheKey returns the base cache key for req: method + canonical URL, with
// GET left unprefixed since it is overwhelmingly the common case. Requests
// that differ only by Vary dimensions share this same key;
// Context.selectCandidate disambiguates between them by walking the
// MetaStore's candidate list for the key rather than encoding Vary into the
// key itself.
func cacheKey(req *http.Request) string {
	if req.Method == http.MethodGet {
		return req.URL.String()
	}
	return req.Method + " " + req.URL.String()
}
