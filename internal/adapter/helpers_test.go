package adapter

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jobscout/jobscout/internal/ratelimit"
	"github.com/jobscout/jobscout/internal/retry"
)

// newTestClient builds a Client with no rate limiting and no retries so
// tests run fast and hit the server a predictable number of times.
func newTestClient(httpClient *http.Client) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := ratelimit.NewSourceLimiter(0, nil)
	policy := retry.Policy{MaxRetries: 0, BaseDelay: time.Millisecond, Logger: logger}
	return NewClient(httpClient, limiter, policy)
}
