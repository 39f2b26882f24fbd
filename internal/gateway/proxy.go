package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/joao-fontenele/canteen/internal/httpx"
)

// forwardedRequestHeaders are copied from the client request to upstream.
var forwardedRequestHeaders = []string{
	"Content-Type",
	"Accept",
	httpx.HeaderUserID,
	httpx.HeaderUserRole,
	httpx.HeaderIdempotencyKey,
}

// forwardedResponseHeaders are copied from upstream back to the client.
var forwardedResponseHeaders = []string{
	"Content-Type",
	"Idempotent-Replayed",
}

type ServiceProxy struct {
	baseURL string
	client  *http.Client
}

func NewServiceProxy(baseURL string, client *http.Client) *ServiceProxy {
	return &ServiceProxy{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// ForwardRequest replays r against path on the upstream service, keeping the
// query string and caller identity.
func (p *ServiceProxy) ForwardRequest(ctx context.Context, r *http.Request, path string) (*http.Response, error) {
	target := p.baseURL + path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, err
	}

	for _, name := range forwardedRequestHeaders {
		if value := r.Header.Get(name); value != "" {
			req.Header.Set(name, value)
		}
	}

	return p.client.Do(req)
}
