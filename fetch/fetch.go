package fetch

import (
	"context"
	"net/http"
)

// Request is the one request shape adapters build, whether the call goes out over a
// plain http.Client or is relayed through the privileged extension bridge.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
	// Cookies are short-lived cookies a backend needs for session affinity on this
	// one call. they are attached to this request only and never leak into a jar.
	Cookies []*http.Cookie
}

type Response struct {
	Status     int
	StatusText string
	Header     http.Header
	Body       []byte
}

func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

func (r Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// Fetcher performs one network round-trip. adapters depend on this, not on a concrete
// client, so the same pipeline code runs against httptest backends in tests.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Response, error)
}
