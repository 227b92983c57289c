// Package httpjson performs JSON HTTP calls with rate limiting and retries.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// ErrStatus marks a non-2xx upstream response.
var ErrStatus = errors.New("unexpected http status")

// StatusError carries the response status of a failed call.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

type Config struct {
	Timeout time.Duration
	Retries int
	// Backoff is the first retry delay.
	Backoff time.Duration
	// RPS limits outbound requests; zero disables limiting.
	RPS   float64
	Burst int
}

type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	retries    int
	backoff    time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 25 * time.Second
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 600 * time.Millisecond
	}
	client := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retries:    cfg.Retries,
		backoff:    cfg.Backoff,
	}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		client.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return client
}

// Get issues a GET with query params and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values, out any) error {
	target := rawURL
	if len(params) > 0 {
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return fmt.Errorf("parse url: %w", err)
		}
		query := parsed.Query()
		for key, values := range params {
			for _, value := range values {
				query.Add(key, value)
			}
		}
		parsed.RawQuery = query.Encode()
		target = parsed.String()
	}
	return c.do(ctx, http.MethodGet, target, nil, out)
}

// Post sends payload as JSON and decodes the JSON response into out.
func (c *Client) Post(ctx context.Context, rawURL string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, rawURL, body, out)
}

func (c *Client) do(ctx context.Context, method, target string, body []byte, out any) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.backoff
	policy.Multiplier = 2
	policy.RandomizationFactor = 0.1
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.retries-1)), ctx)

	return backoff.Retry(func() error {
		err := c.once(ctx, method, target, body, out)
		if err == nil {
			return nil
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}, retry)
}

func (c *Client) once(ctx context.Context, method, target string, body []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(payload)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return &StatusError{Code: resp.StatusCode, Body: snippet}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}
