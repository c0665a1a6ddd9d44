package cachegate

import (
	"errors"
	"net/http"
	"strconv"
	"time"
)

// ErrNoDateHeader indicates the response carried no Date header.
var ErrNoDateHeader = errors.New("cachegate: no Date header")

// headerContentDigest and headerAge are response headers: the EntityStore
// pointer and the delivery-time computed age.
const (
	headerContentDigest = "X-Content-Digest"
	headerAge           = "Age"
	headerStoredStatus  = "X-Status-Code"
)

// parseStatusCode parses a stored status-code header value.
func parseStatusCode(v string) (int, bool) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 100 || n > 599 {
		return 0, false
	}
	return n, true
}

// parseDate parses the response Date header.
func parseDate(h http.Header) (time.Time, error) {
	raw := h.Get("Date")
	if raw == "" {
		return time.Time{}, ErrNoDateHeader
	}
	return time.Parse(time.RFC1123, raw)
}

// parseSeconds parses a Cache-Control directive value expected to be a
// non-negative integer count of seconds (e.g. max-age=120).
func parseSeconds(v string) (time.Duration, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		n = 0
	}
	return time.Duration(n) * time.Second, nil
}

// formatAge renders a duration as an Age header value in whole seconds,
// clamped to >= 0.
func formatAge(age time.Duration) string {
	seconds := int64(age.Seconds())
	if seconds < 0 {
		seconds = 0
	}
	return strconv.FormatInt(seconds, 10)
}
