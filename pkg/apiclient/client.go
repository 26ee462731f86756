package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	portal "github.com/goliatone/go-insurance/components/portal"
)

const maxErrorBody = 64 << 10

// RetryPolicy bounds retries of idempotent requests.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultRetryPolicy is three attempts with a 100ms base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: 100 * time.Millisecond}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	return p.BaseDelay << (attempt - 1)
}

// Config configures the REST client.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	Retry      RetryPolicy
	HTTPClient *http.Client
}

// Client talks to the insurance REST API.
type Client struct {
	baseURL string
	apiKey  string
	retry   RetryPolicy
	client  *http.Client
}

// NewClient builds a client for the API rooted at cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("apiclient: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	retry := cfg.Retry
	if retry.Attempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		retry:   retry,
		client:  httpClient,
	}, nil
}

// do sends one API call. GET and DELETE are retried on transport failures and
// gateway statuses; POST and PUT are sent exactly once.
func (c *Client) do(ctx context.Context, op, method, path string, payload any, target any) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("apiclient: encode %s payload: %w", op, err)
		}
		body = encoded
	}
	attempts := 1
	if idempotent(method) {
		attempts = c.retry.Attempts
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if werr := sleep(ctx, c.retry.delay(attempt-1)); werr != nil {
				return &portal.TransportError{Op: op, Err: werr}
			}
		}
		var retryable bool
		retryable, err = c.once(ctx, op, method, path, body, target)
		if err == nil || !retryable {
			return err
		}
	}
	return err
}

func (c *Client) once(ctx context.Context, op, method, path string, body []byte, target any) (bool, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return false, fmt.Errorf("apiclient: build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, &portal.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return retryStatus(resp.StatusCode), portal.NewAPIError(op, resp.StatusCode, errorMessage(resp.Body))
	}
	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return false, &portal.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return false, nil
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + path
}

type errorBody struct {
	Message string `json:"message"`
}

func errorMessage(r io.Reader) string {
	var body errorBody
	if err := json.NewDecoder(io.LimitReader(r, maxErrorBody)).Decode(&body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Message)
}

func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodDelete
}

func retryStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func unexpected(op, format string, args ...any) error {
	return &portal.TransportError{Op: op, Err: fmt.Errorf("%w: "+format, append([]any{portal.ErrUnexpectedResponse}, args...)...)}
}
