package catalog

import (
	"bytes"
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

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultUserAgent = "go-catalog-link/1.0"
	maxResponseBytes = 1 << 20
	limiterBurst     = 5
)

// Config describes how to reach the provider.
type Config struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerMinute int // 0 disables client-side rate limiting
}

type Client struct {
	baseURL    *url.URL
	userAgent  string
	auth       Authorizer
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its Timeout bounds every call.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLimiter shares a rate limiter between clients; the provider quota applies to
// the application, not to a single user.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// NewLimiter builds the limiter for a requests-per-minute quota, or nil for none.
func NewLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), limiterBurst)
}

func New(cfg Config, auth Authorizer, options ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("[catalog.New] base URL is required")
	}
	if auth == nil {
		return nil, errors.New("[catalog.New] authorizer is required")
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("[catalog.New] invalid base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	c := &Client{
		baseURL:    base,
		userAgent:  userAgent,
		auth:       auth,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    NewLimiter(cfg.RequestsPerMinute),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// call is one provider request. accept lists non-2xx statuses that count as success
// for this call (e.g. 404 on delete, 409 on create).
type call struct {
	method string
	path   []string
	query  url.Values
	body   any
	accept []int
}

func (c *Client) endpoint(segments []string, query url.Values) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u := *c.baseURL
	basePath := strings.TrimSuffix(u.EscapedPath(), "/")
	u.RawPath = basePath + "/" + strings.Join(escaped, "/")
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.Join(segments, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends the request and returns the status and body of an accepted response.
func (c *Client) do(ctx context.Context, cl call) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, &UpstreamError{Message: "rate limit wait: " + err.Error(), Err: err}
		}
	}

	var body io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.endpoint(cl.path, cl.query), body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.auth.Authorize(req); err != nil {
		return 0, nil, fmt.Errorf("authorize request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &UpstreamError{Message: err.Error(), Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, &UpstreamError{Status: resp.StatusCode, Message: "read response: " + err.Error(), Timeout: isTimeout(err), Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, data, nil
	}
	for _, s := range cl.accept {
		if resp.StatusCode == s {
			return resp.StatusCode, data, nil
		}
	}
	return resp.StatusCode, nil, &UpstreamError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
}

func (c *Client) decode(ctx context.Context, cl call, out any) (int, error) {
	status, data, err := c.do(ctx, cl)
	if err != nil {
		return status, err
	}
	if out == nil || status < 200 || status >= 300 || len(data) == 0 {
		return status, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return status, &UpstreamError{Status: status, Message: "decode response: " + err.Error(), Err: err}
	}
	return status, nil
}

func errorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return http.StatusText(status)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
