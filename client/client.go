// Package client talks to an OpenSearch/Elasticsearch-compatible backend
// over its HTTP JSON API. Only the surface the harness needs is covered:
// index administration, bulk import, bulk partial price updates, and the
// three search shapes. The backend stays a black box behind this wire
// contract.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/xid"
	"pkt.systems/pslog"
	"pkt.systems/searchbench/internal/logtag"
)

const (
	// DefaultHTTPTimeout bounds a single backend call when the caller
	// does not override it.
	DefaultHTTPTimeout = 30 * time.Second
	// DefaultIndex is used when no index option is supplied.
	DefaultIndex = "instruments"

	headerRequestID = "X-Request-Id"
)

// CallError describes a failed backend call: transport failure, timeout,
// or a non-success HTTP response. Drivers count these per operation and
// keep running; they never escalate past the iteration that produced them.
type CallError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *CallError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
	case e.Body != "":
		return fmt.Sprintf("backend %s: status %d: %s", e.Op, e.Status, e.Body)
	default:
		return fmt.Sprintf("backend %s: status %d", e.Op, e.Status)
	}
}

func (e *CallError) Unwrap() error { return e.Err }

// Timeout reports whether the call failed because its deadline expired.
func (e *CallError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Client is a thin HTTP client for one backend endpoint and one index.
// It is safe for use from a single driver loop; it holds no mutable
// state beyond the pooled HTTP transport.
type Client struct {
	endpoint string
	index    string
	timeout  time.Duration
	httpc    *http.Client
	logger   pslog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithIndex overrides the default index name.
func WithIndex(index string) Option {
	return func(c *Client) {
		if index = strings.TrimSpace(index); index != "" {
			c.index = index
		}
	}
}

// WithHTTPTimeout bounds each backend call. Zero keeps the default.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpc = h
		}
	}
}

// WithLogger attaches a structured logger. Defaults to a noop logger.
func WithLogger(logger pslog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a client for the given base endpoint (scheme://host:port).
func New(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("client: endpoint required")
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("client: endpoint %q: expected http:// or https:// URL", endpoint)
	}
	c := &Client{
		endpoint: endpoint,
		index:    DefaultIndex,
		timeout:  DefaultHTTPTimeout,
		httpc:    &http.Client{},
		logger:   pslog.NoopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logtag.Sys(c.logger, "client")
	return c, nil
}

// Index returns the index name every call operates on.
func (c *Client) Index() string { return c.index }

// Ping verifies the backend answers on its root endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/", nil, "", nil)
}

func (c *Client) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if c.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.timeout)
}

// do issues one bounded call and decodes a JSON response into out when
// out is non-nil. Every failure is reported as a *CallError.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte, contentType string, out any) error {
	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, c.endpoint+path, reader)
	if err != nil {
		return &CallError{Op: op, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	corr := xid.New().String()
	req.Header.Set(headerRequestID, corr)

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		if reqCtx.Err() != nil {
			err = fmt.Errorf("%w: %v", reqCtx.Err(), err)
		}
		c.logger.Debug("client.call.transport_error", "op", op, "request_id", corr, "error", err)
		return &CallError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Debug("client.call.status_error", "op", op, "request_id", corr, "status", resp.StatusCode)
		return &CallError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &CallError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	c.logger.Trace("client.call.done", "op", op, "request_id", corr, "status", resp.StatusCode, "elapsed", time.Since(start))
	return nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, reqBody, out any) error {
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return &CallError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
	}
	return c.do(ctx, op, http.MethodPost, path, raw, "application/json", out)
}
