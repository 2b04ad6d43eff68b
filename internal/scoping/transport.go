package scoping

import (
	"net/http"

	"github.com/yanizio/campus/internal/scope"
)

// Transport decorates outbound requests with the scoping header.  The
// session is taken from the request context at dispatch time; a request
// without a scope.Handle is sent undecorated.
type Transport struct {
	Base http.RoundTripper
}

// NewTransport wraps base, or http.DefaultTransport when base is nil.
func NewTransport(base http.RoundTripper) *Transport {
	return &Transport{Base: base}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	var snap Snapshot
	if h := scope.FromContext(req.Context()); h != nil {
		snap = SnapshotOf(h.Snapshot())
	}

	headers, rule := Decide(req.URL.String(), snap)
	record(rule)

	// RoundTrippers must not modify the caller's request.
	out := req.Clone(req.Context())
	out.Header.Del(HeaderName)
	for k, v := range headers {
		out.Header.Set(k, v)
	}
	return base.RoundTrip(out)
}
