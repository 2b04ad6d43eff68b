// internal/upstream/client.go
//
// JSON client for the remote REST API.
//
// Context
// -------
// Every feature component talks to the backend through one *Client.  Its
// http.Client is built on scoping.Transport, so the subject header is
// decided per request from the session in the request context.  The bearer
// token comes from the same session.
//
// Failures are never retried.  A non-2xx response becomes *Error carrying
// the status and a best-effort message from the body.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/campus/internal/account"
	"github.com/yanizio/campus/internal/metrics"
	"github.com/yanizio/campus/internal/scope"
	"github.com/yanizio/campus/internal/scoping"
)

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

// Auth endpoints of the remote API.
const (
	LoginPath = "/auth/login"
	MePath    = "/auth/me"
)

// Client issues JSON requests relative to a base URL.
type Client struct {
	base *url.URL
	hc   *http.Client
}

// New returns a Client for baseURL.  rt defaults to http.DefaultTransport
// and is always wrapped in scoping.Transport.
func New(baseURL string, timeout time.Duration, rt http.RoundTripper) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("upstream: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream: base url %q must be absolute", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return &Client{
		base: u,
		hc: &http.Client{
			Transport: scoping.NewTransport(rt),
			Timeout:   timeout,
		},
	}, nil
}

// BaseURL returns a copy of the base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// HTTPClient exposes the decorated client for callers that stream, such as
// the raw proxy.
func (c *Client) HTTPClient() *http.Client { return c.hc }

// URL resolves path and query against the base URL.
func (c *Client) URL(path string, q url.Values) string {
	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimPrefix(path, "/")
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Get decodes the response to GET path into out.
func (c *Client) Get(ctx context.Context, path string, q url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, q, nil, out)
}

// Post sends body as JSON and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Put sends body as JSON and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

// Do performs an authenticated call.  The session's bearer token is
// required.
func (c *Client) Do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	h := scope.FromContext(ctx)
	if h == nil {
		return scope.ErrNoSession
	}
	tok := h.Token()
	if tok == "" {
		return ErrNoToken
	}
	return c.do(ctx, method, path, q, body, out, tok)
}

// DoPublic performs a call without a bearer token, for login.
func (c *Client) DoPublic(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, method, path, nil, body, out, "")
}

// DoWithToken performs a call with an explicit token, for the first
// request after login before the session is written.
func (c *Client) DoWithToken(ctx context.Context, method, path, token string, out any) error {
	return c.do(ctx, method, path, nil, nil, out, token)
}

// Me fetches the session's user with the stored token.
func (c *Client) Me(ctx context.Context) (account.User, error) {
	var u account.User
	err := c.Get(ctx, MePath, nil, &u)
	return u, err
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any, token string) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("upstream: encode body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path, q), rdr)
	if err != nil {
		return fmt.Errorf("upstream: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues("transport").Inc()
		return fmt.Errorf("upstream: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("upstream: read body: %w", err)
	}

	zap.L().Debug("upstream call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamErrorsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
		return &Error{
			StatusCode: resp.StatusCode,
			Message:    ExtractMessage(resp.StatusCode, data),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("upstream: decode %s %s: %w", method, path, err)
	}
	return nil
}
