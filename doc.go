// Package cachegate implements an HTTP gateway cache: a state machine that
// sits between a client and an origin collaborator, serving responses from a
// pluggable metadata/body store when RFC 7234 permits it and forwarding to
// the origin otherwise.
//
// The core of the package is Context, which runs one request/response
// exchange through the pass / lookup / hit / miss / fetch / validate / store
// / deliver transitions. MetaStore and EntityStore (package storage) are the
// two collaborators Context reads and writes; Gateway adapts Context to
// net/http for callers that want a ready-made http.Handler or
// http.RoundTripper.
package cachegate
