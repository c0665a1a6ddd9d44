package cachegate

import (
	"context"
	"net/http"
)

// Origin is the upstream a Context fetches from on a miss or revalidation.
// It is the single seam the core depends on, kept independent of
// net/http's RoundTripper so tests can stub it directly.
type Origin interface {
	Fetch(ctx context.Context, req *http.Request) (*http.Response, error)
}

// OriginFunc adapts a plain function to an Origin.
type OriginFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

// Fetch calls f.
func (f OriginFunc) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

// RoundTripperOrigin adapts an http.RoundTripper (e.g. http.DefaultTransport,
// or another cache layer) into an Origin.
type RoundTripperOrigin struct {
	Transport http.RoundTripper
}

// Fetch issues req through the wrapped RoundTripper.
func (o RoundTripperOrigin) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	rt := o.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	return rt.RoundTrip(req.WithContext(ctx))
}
