// Package paraclient is a Go client for the Para backend API.
package paraclient

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/erudika/para-client-go/pkg/signer"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultEndpoint = "https://paraio.com"
	DefaultAPIPath  = "/v1/"
	// JWTPath is the authentication resource. It is never prefixed with the API path.
	JWTPath = "/jwt_auth"

	defaultTimeout    = 30 * time.Second
	defaultRetryDelay = 500 * time.Millisecond
)

// Client is a REST client for a Para API server. It is safe for concurrent use.
type Client struct {
	accessKey string

	mu        sync.RWMutex
	secretKey string
	endpoint  string
	apiPath   string
	token     *Token

	signer     *signer.Signer
	http       *http.Client
	logger     *zap.Logger
	store      TokenStore
	retryCount uint64
	retryDelay time.Duration
	limiter    *rate.Limiter
	now        func() time.Time
}

// New creates a client for the app identified by accessKey. With a blank
// secretKey the client sends anonymous requests until SignIn succeeds.
func New(accessKey, secretKey string, opts ...Option) *Client {
	c := &Client{
		accessKey:  accessKey,
		secretKey:  secretKey,
		endpoint:   DefaultEndpoint,
		apiPath:    DefaultAPIPath,
		signer:     signer.New(),
		http:       NewHTTPClient(defaultTimeout),
		logger:     zap.NewNop(),
		store:      NewMemoryTokenStore(),
		retryDelay: defaultRetryDelay,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if tok, err := c.store.Load(context.Background()); err != nil {
		c.logger.Warn("failed to load stored access token", zap.Error(err))
	} else {
		c.token = tok
	}
	if secretKey == "" {
		c.logger.Warn("secret key not provided, make sure you call SignIn() first")
	}
	return c
}

// NewHTTPClient returns the transport New uses, with the given request timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          16,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// AccessKey returns the app identifier the client was created with.
func (c *Client) AccessKey() string {
	return c.accessKey
}

// SetEndpoint sets the server URL.
func (c *Client) SetEndpoint(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
}

// Endpoint returns the server URL, DefaultEndpoint if none is set.
func (c *Client) Endpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.endpoint == "" {
		return DefaultEndpoint
	}
	return c.endpoint
}

// SetAPIPath sets the API request path.
func (c *Client) SetAPIPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiPath = path
}

// APIPath returns the API request path, always ending with a slash.
func (c *Client) APIPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	path := c.apiPath
	if path == "" {
		return DefaultAPIPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path
}

func (c *Client) fullPath(resourcePath string) string {
	if strings.HasPrefix(resourcePath, JWTPath) {
		return resourcePath
	}
	return c.APIPath() + strings.TrimPrefix(resourcePath, "/")
}

func (c *Client) currentSecret() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.secretKey
}

// credential returns the JWT as a bearer credential when signed in, the
// secret key otherwise. With refresh set, a due JWT is refreshed first.
func (c *Client) credential(ctx context.Context, refresh bool) string {
	if refresh && c.currentToken() != nil {
		if _, err := c.RefreshToken(ctx); err != nil {
			c.logger.Warn("failed to refresh access token", zap.Error(err))
		}
	}
	if tok := c.currentToken(); tok != nil {
		return "Bearer " + tok.AccessToken
	}
	return c.currentSecret()
}
