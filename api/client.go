// Package api is the HTTP client for the DocuMind REST and chat stream endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ronit111/documind/iox"
	"github.com/ronit111/documind/types"
)

// DefaultTimeout bounds JSON requests. Uploads and chat streams are bounded
// only by the caller's context.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 * 1024

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the timeout for JSON requests.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Client calls the DocuMind server.
// Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// New creates a client for baseURL, the server's API root
// (e.g. "http://localhost:8000/api").
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*types.HealthResponse, error) {
	var out types.HealthResponse
	if err := c.doJSON(ctx, "health", http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDocuments calls GET /documents.
func (c *Client) ListDocuments(ctx context.Context) (*types.DocumentList, error) {
	var out types.DocumentList
	if err := c.doJSON(ctx, "list documents", http.MethodGet, "/documents", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDocument calls GET /documents/{id}.
// A missing document yields an error matching ErrNotFound.
func (c *Client) GetDocument(ctx context.Context, id string) (*types.DocumentRecord, error) {
	var out types.DocumentRecord
	if err := c.doJSON(ctx, "get document", http.MethodGet, "/documents/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDocument calls DELETE /documents/{id}.
func (c *Client) DeleteDocument(ctx context.Context, id string) (*types.DeleteResponse, error) {
	var out types.DeleteResponse
	if err := c.doJSON(ctx, "delete document", http.MethodDelete, "/documents/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer iox.DiscardClose(resp.Body)

	return decodeResponse(op, resp, out)
}

// decodeResponse maps non-2xx replies to *ServerError and decodes the body into out.
func decodeResponse(op string, resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readServerError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
		return &TransportError{Op: op, Err: err}
	}
	return nil
}

// readServerError builds a ServerError from an error envelope, falling back
// to the HTTP status text when the body carries no detail.
func readServerError(resp *http.Response) *ServerError {
	serverErr := &ServerError{StatusCode: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var envelope types.ErrorEnvelope
	if json.Unmarshal(data, &envelope) == nil && envelope.Detail != "" {
		serverErr.Detail = envelope.Detail
	} else {
		serverErr.Detail = http.StatusText(resp.StatusCode)
	}
	if serverErr.Detail == "" {
		serverErr.Detail = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return serverErr
}
