// Package api is the gateway to the job-payment backend. It exposes one method
// per backend operation and normalizes the backend's inconsistent response
// shapes before anything else sees them.
//
// Read methods always return a usable value: on failure they return the safe
// default for their type together with the error, so callers may either
// surface the error or log it and carry on. Mutations return an *Error with
// the most specific message the backend provided.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"paydesk/internal/logger"
)

const defaultUserAgent = "paydesk/1.0"

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration

	// RequestsPerSecond throttles outgoing requests; 0 disables throttling.
	RequestsPerSecond float64

	UserAgent  string
	HTTPClient *http.Client
}

// Client talks to the backend REST API.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	headers    map[string]string
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// NewClient creates a backend client.
func NewClient(cfg Config) (*Client, error) {
	const op = "api.NewClient"

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%s: base URL is required", op)
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base URL: %w", op, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%s: base URL must be absolute: %q", op, cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	client := &Client{
		httpClient: httpClient,
		baseURL:    base,
		headers: map[string]string{
			"Accept":     "application/json",
			"User-Agent": userAgent,
		},
		log: logger.WithComponent("api"),
	}
	if cfg.Token != "" {
		client.headers["Authorization"] = "Bearer " + cfg.Token
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		client.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return client, nil
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// request describes one backend call.
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

// response is a completed backend call.
type response struct {
	statusCode int
	body       []byte
	requestID  string
}

// jsonBody encodes v as a request body.
func jsonBody(v interface{}) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// do executes req. A non-2xx status is returned as an *Error together with the
// response so callers can still inspect the body.
func (c *Client) do(ctx context.Context, req request) (*response, error) {
	requestID := uuid.NewString()

	u, err := c.buildURL(req.path, req.query)
	if err != nil {
		return nil, newTransportError(req.op, requestID, fmt.Errorf("building URL: %w", err))
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, newTransportError(req.op, requestID, err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), req.body)
	if err != nil {
		return nil, newTransportError(req.op, requestID, fmt.Errorf("creating HTTP request: %w", err))
	}
	c.setHeaders(httpReq, requestID)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		c.log.Debug().
			Err(err).
			Str("request_id", requestID).
			Str("method", req.method).
			Str("path", u.Path).
			Dur("duration", duration).
			Msg("Request failed")
		return nil, newTransportError(req.op, requestID, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, newTransportError(req.op, requestID, fmt.Errorf("reading response body: %w", err))
	}

	c.log.Debug().
		Str("request_id", requestID).
		Str("method", req.method).
		Str("path", u.Path).
		Int("status", httpResp.StatusCode).
		Dur("duration", duration).
		Int("bytes", len(body)).
		Msg("Request completed")

	resp := &response{
		statusCode: httpResp.StatusCode,
		body:       body,
		requestID:  requestID,
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return resp, newServerError(req.op, requestID, httpResp.StatusCode, body)
	}
	return resp, nil
}

// get performs a GET and returns the raw body.
func (c *Client) get(ctx context.Context, op, path string, query url.Values) (*response, error) {
	return c.do(ctx, request{
		op:     op,
		method: http.MethodGet,
		path:   path,
		query:  query,
	})
}

// buildURL joins path onto the base URL, keeping any base path prefix.
func (c *Client) buildURL(path string, query url.Values) (*url.URL, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	u, err := url.Parse(c.baseURL.String() + path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				if v != "" {
					q.Add(k, v)
				}
			}
		}
		u.RawQuery = q.Encode()
	}

	return u, nil
}

// setHeaders sets the default headers and the request id on req.
func (c *Client) setHeaders(req *http.Request, requestID string) {
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("X-Request-ID", requestID)
}

// pathEscape escapes a single path segment such as an id or email.
func pathEscape(segment string) string {
	return url.PathEscape(strings.TrimSpace(segment))
}
