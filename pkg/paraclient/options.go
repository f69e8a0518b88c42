package paraclient

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Option configures a Client.
type Option func(*Client)

// WithEndpoint sets the server URL, e.g. http://localhost:8080.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	}
}

// WithAPIPath sets the API request path. Defaults to /v1/.
func WithAPIPath(path string) Option {
	return func(c *Client) {
		c.apiPath = path
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTokenStore sets where the JWT is persisted. Defaults to memory.
func WithTokenStore(store TokenStore) Option {
	return func(c *Client) {
		if store != nil {
			c.store = store
		}
	}
}

// WithRetry retries idempotent requests up to maxRetries times with
// exponential backoff starting at baseDelay.
func WithRetry(maxRetries uint64, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.retryCount = maxRetries
		if baseDelay > 0 {
			c.retryDelay = baseDelay
		}
	}
}

// WithRateLimit limits outgoing requests to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) {
		if r > 0 {
			c.limiter = rate.NewLimiter(r, max(burst, 1))
		}
	}
}

// WithClock overrides the time source used for signing and token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}
