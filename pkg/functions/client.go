// Package functions invokes the backend's hosted background jobs over HTTP.
package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/promoter-service/internal/store"
)

const functionsPath = "/functions/v1/"

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit sets the requests-per-second cap on invocations.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// Client implements store.Invoker against {baseURL}/functions/v1/{name}.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

var _ store.Invoker = (*Client)(nil)

// NewClient creates a functions client for the backend at baseURL.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(5, 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke POSTs body as JSON to the named job and decodes the JSON response
// into out. A non-2xx response becomes a *store.Error whose code is the HTTP
// status.
func (c *Client) Invoke(ctx context.Context, name string, body any, out any) error {
	if name == "" {
		return eris.New("functions: job name is required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "functions: rate limit wait")
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "functions: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+functionsPath+name, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "functions: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "functions: invoke %s", name)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrapf(err, "functions: read %s response", name)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &store.Error{
			Op:      "invoke " + name,
			Code:    strconv.Itoa(resp.StatusCode),
			Message: errorMessage(name, resp.StatusCode, data),
			Details: string(data),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrapf(err, "functions: decode %s response", name)
	}
	return nil
}

// errorMessage prefers the job's own {"error": ...} or {"message": ...} text.
func errorMessage(name string, status int, body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return fmt.Sprintf("functions: %s returned HTTP %d", name, status)
}
