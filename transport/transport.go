// Package transport dispatches requests to a remote TeamDynamix web API
// instance. It builds the environment-specific base URL, attaches bearer
// authentication, and returns raw responses for the caller to interpret.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Environment path segments. Sandbox instances serve under SBTDWebApi,
// production under TDWebApi.
const (
	sandboxSegment    = "SBTDWebApi"
	productionSegment = "TDWebApi"
)

// requestTimeout bounds every dispatch. There is no retry; retries and
// backoff are a caller concern.
const requestTimeout = 10 * time.Second

// Response is a raw remote response: status code plus body. Interpretation
// (including non-2xx classification) is left to the caller.
type Response struct {
	Status int
	Body   []byte
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// Err classifies a non-2xx response: 401 maps to ErrNotAuthorized, anything
// else to a RequestError carrying the status and body. Returns nil for 2xx.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	if r.Status == http.StatusUnauthorized {
		return ErrNotAuthorized
	}
	return &RequestError{Status: r.Status, Body: string(r.Body)}
}

// Client dispatches GET and POST requests to one TeamDynamix instance.
// The token may be replaced at any time (e.g. by a renewal task), so access
// is guarded.
type Client struct {
	domain  string
	sandbox bool
	baseURL string // overrides domain-derived host when set
	http    *http.Client
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the https://{domain} host prefix, for pointing the
// client at a test twin. The environment path segment is still appended.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// New creates a Client for the given instance domain (e.g.
// "teamdynamix.umich.edu"). When sandbox is true, requests go to the
// instance's sandbox environment.
func New(domain string, sandbox bool, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		domain:  domain,
		sandbox: sandbox,
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token used on authenticated calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token, or "" if none is set.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Sandbox reports whether the client targets the sandbox environment.
func (c *Client) Sandbox() bool {
	return c.sandbox
}

// url builds the full request URL for an API endpoint such as
// "assets/statuses" or "31/tickets/search".
func (c *Client) url(endpoint string) string {
	segment := productionSegment
	if c.sandbox {
		segment = sandboxSegment
	}
	host := c.baseURL
	if host == "" {
		host = "https://" + c.domain
	}
	return fmt.Sprintf("%s/%s/api/%s", host, segment, endpoint)
}

// Dispatch performs a single request against the remote instance. Methods
// other than GET and POST fail with an UnsupportedMethodError. A network
// failure (as opposed to a remote 4xx/5xx) surfaces as a CommunicationError
// so callers can back off differently from an authorization or validation
// failure.
func (c *Client) Dispatch(ctx context.Context, method, endpoint string, requiresAuth bool, body any) (*Response, error) {
	method = strings.ToUpper(method)
	if method != http.MethodGet && method != http.MethodPost {
		return nil, &UnsupportedMethodError{Method: method}
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(endpoint), payload)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if requiresAuth {
		if token := c.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &CommunicationError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &CommunicationError{Endpoint: endpoint, Err: err}
	}

	c.logger.Debug("dispatched request",
		"method", method,
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	return &Response{Status: resp.StatusCode, Body: respBody}, nil
}

// Get dispatches an authenticated GET to the given endpoint.
func (c *Client) Get(ctx context.Context, endpoint string) (*Response, error) {
	return c.Dispatch(ctx, http.MethodGet, endpoint, true, nil)
}

// Post dispatches an authenticated POST with a JSON body to the given endpoint.
func (c *Client) Post(ctx context.Context, endpoint string, body any) (*Response, error) {
	return c.Dispatch(ctx, http.MethodPost, endpoint, true, body)
}
