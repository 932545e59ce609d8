// Package api talks to the mindmap backend: a REST surface with ETag
// optimistic concurrency plus SSE streams for long-running jobs. The
// executor in this package is the single place transport errors are
// recovered; only classification outcomes cross into the epics.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mindmesh/application/ports"
	apperrors "mindmesh/pkg/errors"
	"mindmesh/pkg/sse"
)

const (
	headerETag    = "ETag"
	headerIfMatch = "If-Match"
	headerAPIKey  = "X-Api-Key"
	headerApp     = "X-Mindmap-App"
)

// Client issues requests against one mindmap app.
type Client struct {
	baseURL string
	app     string
	apiKey  string
	// httpClient carries a request timeout and serves the REST calls;
	// streamClient has none, since a client-side timeout would kill
	// long-lived SSE subscriptions. Stream lifetimes are bounded by their
	// contexts instead.
	httpClient   *http.Client
	streamClient *http.Client
	logger       *zap.Logger
}

// NewClient creates a client. apiKey may be empty when API-key auth is
// disabled.
func NewClient(baseURL, app, apiKey string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:      baseURL,
		app:          app,
		apiKey:       apiKey,
		httpClient:   httpClient,
		streamClient: &http.Client{Transport: httpClient.Transport},
		logger:       logger,
	}
}

// App returns the app identifier requests are scoped to.
func (c *Client) App() string { return c.app }

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Body   []byte
	Etag   string
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Send issues one request. body is JSON-encoded when non-nil; etag rides in
// the If-Match header when non-empty. Transport failures come back as
// errors; HTTP statuses of any kind come back in the Response.
func (c *Client) Send(ctx context.Context, method, path string, body interface{}, headers map[string]string, etag string) (*Response, error) {
	req, err := c.newRequest(ctx, method, path, body, headers)
	if err != nil {
		return nil, err
	}
	if etag != "" && method != http.MethodGet {
		req.Header.Set(headerIfMatch, etag)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{
		Status: resp.StatusCode,
		Body:   data,
		Etag:   resp.Header.Get(headerETag),
	}, nil
}

// OpenStream starts an SSE subscription. The returned reader is bound to
// ctx: cancelling ctx aborts the underlying request, and Close releases the
// body. A non-2xx handshake is returned as a classified error.
func (c *Client) OpenStream(ctx context.Context, method, path string, body interface{}) (*sse.Reader, error) {
	req, err := c.newRequest(ctx, method, path, body, map[string]string{
		"Accept": "text/event-stream",
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, apperrors.FromStatus(resp.StatusCode, string(snippet))
	}
	return sse.NewReader(resp.Body), nil
}

// Stream adapts OpenStream to the ports.StreamOpener surface.
func (c *Client) Stream(ctx context.Context, method, path string, body interface{}) (ports.Stream, error) {
	r, err := c.OpenStream(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// RawStream adapts OpenRaw to the ports.StreamOpener surface.
func (c *Client) RawStream(ctx context.Context, method, path string, body interface{}) (io.ReadCloser, error) {
	return c.OpenRaw(ctx, method, path, body)
}

// OpenRaw starts a request whose body the caller consumes incrementally
// (the chunked completion stream). The caller owns the returned body and
// must close it; cancelling ctx aborts the transfer.
func (c *Client) OpenRaw(ctx context.Context, method, path string, body interface{}) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, method, path, body, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, apperrors.FromStatus(resp.StatusCode, string(snippet))
	}
	return resp.Body, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}, headers map[string]string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerApp, c.app)
	if c.apiKey != "" {
		req.Header.Set(headerAPIKey, c.apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}
