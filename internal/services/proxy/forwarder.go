package proxy

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/forkful/gateway/internal/logger"
)

// Prefix is the inbound path prefix rewritten onto the upstream base URL.
const Prefix = "/api/proxy"

// strippedHeaders are never forwarded upstream. Cookies hold the gateway's
// own credentials and must not leak; the length/encoding headers are
// recomputed by the transport.
var strippedHeaders = map[string]struct{}{
	"Host":             {},
	"Cookie":           {},
	"Content-Length":   {},
	"Content-Encoding": {},
}

// Forwarder issues outbound requests to the upstream resource API. It is a
// transparent pass-through: redirects are never followed, so a 3xx from
// upstream reaches the original caller unchanged, and responses are never
// cached.
type Forwarder struct {
	baseURL string
	client  *http.Client
}

func NewForwarder(baseURL string, timeout time.Duration) *Forwarder {
	return &Forwarder{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Forward rebuilds the inbound request against the upstream base and
// executes it. An empty accessToken forwards unauthenticated; upstream
// enforces authorization either way. GET and HEAD never carry a body even
// if the inbound request had one.
func (f *Forwarder) Forward(ctx context.Context, r *http.Request, accessToken string) (*http.Response, error) {
	path := strings.TrimPrefix(r.URL.Path, Prefix)
	if path == "" {
		path = "/"
	}

	target := f.baseURL + path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		body = r.Body
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, err
	}

	// Keep the outbound request byte-transparent: without this the
	// wrapped body reader forces chunked transfer upstream
	if body != nil && r.ContentLength >= 0 {
		req.ContentLength = r.ContentLength
	}

	for name, values := range r.Header {
		if _, skip := strippedHeaders[http.CanonicalHeaderKey(name)]; skip {
			continue
		}
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}

	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	logger.Debug(logger.PROXY, "Forwarding %s %s", r.Method, path)

	return f.client.Do(req)
}
