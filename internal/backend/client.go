// Package backend is the typed HTTP client for the EduAssist and TestPilot REST API.
//
// Every request carries the caller's bearer token when one resolves. Calls are
// not retried; non-2xx responses surface as *Error so callers can show the
// backend's detail message.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eduassist/portal/internal/ports"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 64 << 10
)

// TokenSource resolves the bearer token for outgoing requests.
// An empty string means no Authorization header is sent.
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) string

// Token implements TokenSource.
func (f TokenFunc) Token(ctx context.Context) string { return f(ctx) }

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper
	Tokens    TokenSource
	// ReplyPath is a JMESPath expression selecting chat reply text.
	ReplyPath string
	Logger    *slog.Logger
}

// Client talks to the REST backend. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	next    http.RoundTripper
	timeout time.Duration
	logger  *slog.Logger
	hc      *http.Client
	replies ReplyExtractor
}

// NewClient validates opts and builds a Client.
func NewClient(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, errors.New("backend: base URL is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("backend: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend: unsupported scheme %q", base.Scheme)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")

	replies, err := NewReplyExtractor(opts.ReplyPath)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	next := opts.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{base: base, next: next, timeout: timeout, logger: logger, replies: replies}
	c.hc = c.httpClient(opts.Tokens)
	return c, nil
}

func (c *Client) httpClient(tokens TokenSource) *http.Client {
	return &http.Client{
		Timeout: c.timeout,
		Transport: &bearerTransport{
			next:   c.next,
			tokens: tokens,
			logger: c.logger,
		},
	}
}

// WithTokens returns a Client sharing configuration with c but resolving
// bearer tokens from ts.
func (c *Client) WithTokens(ts TokenSource) *Client {
	cp := *c
	cp.hc = c.httpClient(ts)
	return &cp
}

// Error is a non-2xx backend response.
type Error struct {
	Status int
	Detail string
	Method string
	Path   string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend %s %s: %d: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("backend %s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// StatusCode returns the response status.
func (e *Error) StatusCode() int { return e.Status }

// Detail returns the backend's user-facing message for err, or fallback.
func Detail(err error, fallback string) string {
	var be *Error
	if errors.As(err, &be) && be.Detail != "" {
		return be.Detail
	}
	return fallback
}

// IsStatus reports whether err is a backend error with the given status.
func IsStatus(err error, status int) bool {
	var be *Error
	return errors.As(err, &be) && be.Status == status
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	raw := c.base.EscapedPath() + path
	if p, err := url.PathUnescape(raw); err == nil {
		u.Path, u.RawPath = p, raw
	} else {
		u.Path, u.RawPath = raw, ""
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// request describes one call.
type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func jsonRequest(method, path string, v any) (request, error) {
	req := request{method: method, path: path}
	if v == nil {
		return req, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return req, fmt.Errorf("encode %s %s: %w", method, path, err)
	}
	req.body = bytes.NewReader(b)
	req.contentType = "application/json"
	return req, nil
}

// do sends r and returns the raw response body of a 2xx response.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path, r.query), r.body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", r.method, r.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{
			Status: resp.StatusCode,
			Detail: errorDetail(body),
			Method: r.method,
			Path:   r.path,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", r.method, r.path, err)
	}
	return body, nil
}

// doJSON sends r and decodes a JSON response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, r request, out any) error {
	body, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	req, err := jsonRequest(method, path, in)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, req, out)
}

// errorDetail extracts "detail" (string, or list of {msg}) from an error body.
func errorDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(payload.Detail, &items) == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	return payload.Message
}

func escape(id string) string { return url.PathEscape(id) }

var (
	_ ports.ClassroomAPI = (*Client)(nil)
	_ ports.TestPilotAPI = (*Client)(nil)
)
