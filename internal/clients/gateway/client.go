// Package gateway provides a client for the local trading-gateway HTTP API.
//
// The gateway listens on loopback with a self-signed certificate and holds a
// pre-authenticated session established via the browser login flow; this
// client only issues API calls against that session.
package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
)

const (
	DefaultBaseURL   = "https://localhost:5000/v1/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second

	// maxRedirects caps manual redirect following per request.
	maxRedirects = 5
)

// Client implements the GatewayClient interface.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	timeout    time.Duration
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger.
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the default per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// NewClient creates a new gateway client. Certificate validation is
// disabled: the gateway presents a self-signed certificate and the base URL
// is expected to point at loopback only.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
			// Redirects are followed manually in request() so the hop cap
			// and method rewriting stay under our control.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Error represents a gateway API error. StatusCode is 0 for transport-level
// failures (network errors, timeouts, redirect-cap exceeded).
type Error struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// request performs one rate-limited API call and returns the raw response
// body of the first non-redirect response. Redirects are re-issued at the
// Location target up to maxRedirects hops; 303 (and the legacy 301/302)
// rewrite the method to GET and drop the body, 307/308 preserve both.
func (c *Client) request(ctx context.Context, method, endpoint string, body interface{}, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{StatusCode: 0, Message: "rate limit wait: " + err.Error(), Endpoint: endpoint}
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	reqURL := c.baseURL + endpoint
	reqMethod := method

	for hop := 0; ; hop++ {
		if hop > maxRedirects {
			return nil, &Error{StatusCode: 0, Message: "too many redirects", Endpoint: endpoint}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, reqMethod, reqURL, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		c.logger.Debug().Str("method", reqMethod).Str("url", reqURL).Int("hop", hop).Msg("Gateway request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &Error{StatusCode: 0, Message: err.Error(), Endpoint: endpoint}
		}

		if isRedirect(resp.StatusCode) {
			location := resp.Header.Get("Location")
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			if location == "" {
				return nil, &Error{StatusCode: resp.StatusCode, Message: "redirect without Location header", Endpoint: endpoint}
			}

			next, err := url.Parse(location)
			if err != nil {
				return nil, &Error{StatusCode: resp.StatusCode, Message: "invalid redirect Location: " + location, Endpoint: endpoint}
			}
			base, _ := url.Parse(reqURL)
			reqURL = base.ResolveReference(next).String()

			if resp.StatusCode != http.StatusTemporaryRedirect && resp.StatusCode != http.StatusPermanentRedirect {
				reqMethod = http.MethodGet
				payload = nil
			}
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, &Error{StatusCode: 0, Message: "failed to read response: " + err.Error(), Endpoint: endpoint}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &Error{StatusCode: resp.StatusCode, Message: string(data), Endpoint: endpoint}
		}

		return data, nil
	}
}

// requestJSON performs a request and decodes the JSON response into result.
// Some gateway endpoints return plain strings; for those the raw body is
// wanted and request() is used directly.
func (c *Client) requestJSON(ctx context.Context, method, endpoint string, body, result interface{}) error {
	data, err := c.request(ctx, method, endpoint, body, 0)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

// Ensure Client implements GatewayClient.
var _ interfaces.GatewayClient = (*Client)(nil)
