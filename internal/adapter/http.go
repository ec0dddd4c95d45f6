package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/ratelimit"
	"github.com/jobscout/jobscout/internal/retry"
)

// Client is the shared HTTP layer for all network adapters: every call
// waits on the per-source rate limiter and is retried per the retry policy.
// Non-2xx responses become *model.HTTPError so the policy can classify them.
type Client struct {
	client  *http.Client
	limiter *ratelimit.SourceLimiter
	policy  retry.Policy
}

func NewClient(client *http.Client, limiter *ratelimit.SourceLimiter, policy retry.Policy) *Client {
	return &Client{client: client, limiter: limiter, policy: policy}
}

// getJSON performs a rate-limited, retried GET and decodes the JSON response
// into v.
func (f *Client) getJSON(ctx context.Context, source, url string, header http.Header, v any) error {
	return f.policy.Do(ctx, source, func(ctx context.Context) error {
		return f.doJSON(ctx, source, http.MethodGet, url, header, nil, v)
	})
}

// postJSON performs a rate-limited, retried POST with a JSON body and decodes
// the JSON response into v.
func (f *Client) postJSON(ctx context.Context, source, url string, header http.Header, body any, v any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", source, err)
	}
	return f.policy.Do(ctx, source, func(ctx context.Context) error {
		return f.doJSON(ctx, source, http.MethodPost, url, header, payload, v)
	})
}

// getRaw performs a rate-limited, retried GET and returns the raw body.
// Used by the feed adapter, whose payload is XML rather than JSON.
func (f *Client) getRaw(ctx context.Context, source, url string) ([]byte, error) {
	var raw []byte
	err := f.policy.Do(ctx, source, func(ctx context.Context) error {
		if err := f.limiter.Wait(ctx, source); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("%s fetch: %w", source, err)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("%s fetch: %w", source, err)
		}
		defer resp.Body.Close()

		if err := checkStatus(resp); err != nil {
			return err
		}

		raw, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%s read body: %w", source, err)
		}
		return nil
	})
	return raw, err
}

// doJSON is one attempt: rate-limit wait, request, status check, decode.
func (f *Client) doJSON(ctx context.Context, source, method, url string, header http.Header, payload []byte, v any) error {
	if err := f.limiter.Wait(ctx, source); err != nil {
		return err
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("%s fetch: %w", source, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vals := range header {
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s fetch: %w", source, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%s decode response: %w", source, err)
	}
	return nil
}

// checkStatus maps non-2xx responses to *model.HTTPError, carrying the
// Retry-After hint for 429 responses.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &model.HTTPError{
		StatusCode: resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		Err:        fmt.Errorf("unexpected status %s", resp.Status),
	}
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// probe issues a single GET without rate limiting or retries and reports the
// outcome; used by health checks, which must stay cheap and side-effect free.
func (f *Client) probe(ctx context.Context, url string) HealthStatus {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return unhealthy(err.Error(), time.Since(start))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return unhealthy(err.Error(), time.Since(start))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	elapsed := time.Since(start)
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return healthy(fmt.Sprintf("status %d", resp.StatusCode), elapsed)
	}
	return unhealthy(fmt.Sprintf("status %d", resp.StatusCode), elapsed)
}
