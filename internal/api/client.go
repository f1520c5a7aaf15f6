// Package api is the HTTP client of the reporting backend. It returns raw
// JSON payloads; decoding belongs to the reports package.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/reports"
)

// DefaultTimeout bounds a single request when the caller sets none.
const DefaultTimeout = 15 * time.Second

// maxBody caps how much of a response is read.
const maxBody = 32 << 20

var ErrNoBaseURL = errors.New("api: base URL is not provided")

// StatusError is a non-2xx answer of the reporting API.
type StatusError struct {
	Endpoint core.Endpoint
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %d %s", e.Endpoint, e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("%s: %d %s", e.Endpoint, e.Code, e.Message)
}

// Unauthorized reports whether the API rejected the token.
func (e *StatusError) Unauthorized() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
}

type Client struct {
	baseURL *url.URL
	token   string
	timeout time.Duration
	http    *http.Client
	logger  *applog.Logger
}

var _ reports.Fetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as the Authorization header of every request.
func WithToken(token string) Option { return func(c *Client) { c.token = token } }

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithHTTPClient replaces the transport, e.g. in tests.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api: invalid base URL %q", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	c := &Client{
		baseURL: u,
		timeout: DefaultTimeout,
		logger:  applog.WithComponent(applog.ComponentAPI),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = newHTTPClientWithPooling()
	}
	return c, nil
}

// newHTTPClientWithPooling keeps a small pool of connections to the API
// host; per-request deadlines come from the context.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
}

// URL resolves q against the base URL.
func (c *Client) URL(q core.Query) string {
	u := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(string(q.Endpoint), "/")})
	if len(q.Params) > 0 {
		u.RawQuery = q.Params.Encode()
	}
	return u.String()
}

// Fetch performs GET on the query's endpoint and returns the body. Failed
// requests are not retried.
func (c *Client) Fetch(ctx context.Context, q core.Query) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(q), nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", q.Endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", q.Endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", q.Endpoint, err)
	}
	c.logger.DebugContext(ctx, "API response",
		applog.FieldEndpoint, string(q.Endpoint),
		applog.FieldStatusCode, resp.StatusCode,
		applog.FieldBytes, len(body),
		applog.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Endpoint: q.Endpoint, Code: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// errorMessage pulls a human-readable message out of an error body:
// {"detail": ...}, {"message": ...}, {"error": ...}, or short plain text.
func errorMessage(body []byte) string {
	var payload struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch d := payload.Detail.(type) {
		case string:
			if d != "" {
				return d
			}
		case nil:
		default:
			if b, err := json.Marshal(d); err == nil {
				return string(b)
			}
		}
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
		return ""
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 || strings.HasPrefix(text, "<") {
		return ""
	}
	return text
}
