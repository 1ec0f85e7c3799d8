// Package transport sends JSON requests to the svcore backend.
//
// Requests are dispatched asynchronously: Send returns a channel that yields
// exactly one Result. A token-bucket scheduler bounds how fast requests leave
// the process.
package transport

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

	"svcore/pkg/logging"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20
)

// Request describes a call relative to the client's base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	// Body is JSON-encoded when non-nil.
	Body any
}

// Response is a completed HTTP exchange with a 2xx status.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// Result is delivered on the channel returned by Send.
type Result struct {
	Response *Response
	Err      error
}

// Sender is implemented by Client. Packages depend on it so tests can stub the backend.
type Sender interface {
	Send(ctx context.Context, req *Request) <-chan Result
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed: %s - %s", e.Status, e.Body)
}

// Config holds client configuration.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
	// DefaultHeader is added to every request.
	DefaultHeader http.Header
}

// Client is the asynchronous backend transport.
type Client struct {
	baseURL       *url.URL
	httpClient    *http.Client
	limiter       *rate.Limiter
	defaultHeader http.Header
	log           logging.Sink
}

// New creates a new transport client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:       base,
		httpClient:    httpClient,
		limiter:       rate.NewLimiter(limit, burst),
		defaultHeader: cfg.DefaultHeader.Clone(),
		log:           logging.NewSink("Transport"),
	}, nil
}

// Send schedules req and returns a channel that receives exactly one Result.
// The channel is buffered, so callers may abandon it.
func (c *Client) Send(ctx context.Context, req *Request) <-chan Result {
	results := make(chan Result, 1)
	go func() {
		resp, err := c.do(ctx, req)
		results <- Result{Response: resp, Err: err}
	}()
	return results
}

// Do sends req and waits for its result.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	return Await(ctx, c.Send(ctx, req))
}

// Await waits for a Result from Send or for ctx to end.
func Await(ctx context.Context, results <-chan Result) (*Response, error) {
	select {
	case res := <-results:
		return res.Response, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) do(ctx context.Context, req *Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("schedule request: %w", err)
	}

	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Warn("%s %s failed: %v", httpReq.Method, httpReq.URL.Path, err)
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.log.Log("%s %s -> %d in %s", httpReq.Method, httpReq.URL.Path, resp.StatusCode, time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.baseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for key, values := range c.defaultHeader {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	for key, values := range req.Header {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}
