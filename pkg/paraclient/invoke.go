package paraclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/erudika/para-client-go/pkg/signer"
	"github.com/erudika/para-client-go/pkg/version"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const jsonContentType = "application/json"

// Response is a successful, non-empty server response.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IsJSON reports whether the server declared a JSON body.
func (r *Response) IsJSON() bool {
	if r == nil {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	return err == nil && mediaType == jsonContentType
}

// Decode unmarshals the JSON body into v. A nil response leaves v untouched.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// String returns the body as text, "" for a nil response.
func (r *Response) String() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// IsTrue reports whether the body is the literal "true".
func (r *Response) IsTrue() bool {
	return strings.TrimSpace(r.String()) == "true"
}

// call is a single API request before credentials are applied.
type call struct {
	method  string
	path    string
	params  url.Values
	entity  any
	secret  string
	headers map[string]string
}

// InvokeGet sends a GET request to resourcePath, relative to the API path.
func (c *Client) InvokeGet(ctx context.Context, resourcePath string, params url.Values) (*Response, error) {
	return c.invoke(ctx, http.MethodGet, resourcePath, params, nil)
}

// InvokePost sends a POST request with entity as the JSON body.
func (c *Client) InvokePost(ctx context.Context, resourcePath string, entity any) (*Response, error) {
	return c.invoke(ctx, http.MethodPost, resourcePath, nil, entity)
}

// InvokePut sends a PUT request with entity as the JSON body.
func (c *Client) InvokePut(ctx context.Context, resourcePath string, entity any) (*Response, error) {
	return c.invoke(ctx, http.MethodPut, resourcePath, nil, entity)
}

// InvokePatch sends a PATCH request with entity as the JSON body.
func (c *Client) InvokePatch(ctx context.Context, resourcePath string, entity any) (*Response, error) {
	return c.invoke(ctx, http.MethodPatch, resourcePath, nil, entity)
}

// InvokeDelete sends a DELETE request to resourcePath.
func (c *Client) InvokeDelete(ctx context.Context, resourcePath string, params url.Values) (*Response, error) {
	return c.invoke(ctx, http.MethodDelete, resourcePath, params, nil)
}

func (c *Client) invoke(
	ctx context.Context,
	method, resourcePath string,
	params url.Values,
	entity any,
) (*Response, error) {
	refresh := method == http.MethodGet && resourcePath != JWTPath
	return c.do(ctx, &call{
		method: method,
		path:   c.fullPath(resourcePath),
		params: params,
		entity: entity,
		secret: c.credential(ctx, refresh),
	})
}

// do executes the call, retrying idempotent requests on temporary failures.
// A 404 or an empty body yields a nil response and no error.
func (c *Client) do(ctx context.Context, cl *call) (*Response, error) {
	if c.accessKey == "" {
		c.logger.Warn("blank access key", zap.String("method", cl.method), zap.String("path", cl.path))
		return nil, ErrMissingAccessKey
	}
	requestID := uuid.NewString()
	if c.retryCount == 0 || !isIdempotent(cl.method) {
		return c.attempt(ctx, cl, requestID)
	}
	var resp *Response
	backoff := retry.WithMaxRetries(c.retryCount, retry.NewExponential(c.retryDelay))
	err := retry.Do(ctx, backoff, func(retryCtx context.Context) error {
		r, err := c.attempt(retryCtx, cl, requestID)
		if err != nil {
			if isTemporary(retryCtx, err) {
				c.logger.Debug("retrying request",
					zap.String("request_id", requestID), zap.Error(err))
				return retry.RetryableError(err)
			}
			return err
		}
		resp = r
		return nil
	})
	return resp, err
}

func (c *Client) attempt(ctx context.Context, cl *call, requestID string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("request_id", requestID),
			zap.String("method", cl.method),
			zap.String("path", cl.path),
			zap.Error(err))
		return nil, fmt.Errorf("request '%s %s' failed: %w", cl.method, cl.path, err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	c.logger.Debug("request completed",
		zap.String("request_id", requestID),
		zap.String("method", cl.method),
		zap.String("url", req.URL.String()),
		zap.Int("status", res.StatusCode),
		zap.Duration("duration", time.Since(start)))
	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, nil
	case res.StatusCode >= 200 && res.StatusCode < 300:
		if len(data) == 0 {
			return nil, nil
		}
		return &Response{
			StatusCode:  res.StatusCode,
			ContentType: res.Header.Get("Content-Type"),
			Body:        data,
		}, nil
	default:
		apiErr := newAPIError(cl.method, cl.path, res.StatusCode, data)
		c.logger.Warn("request rejected",
			zap.String("request_id", requestID),
			zap.Int("status", res.StatusCode),
			zap.String("message", apiErr.Message))
		return nil, apiErr
	}
}

// newRequest builds the HTTP request and applies the credential: anonymous
// for a blank secret, bearer for a JWT, a V4 signature otherwise.
func (c *Client) newRequest(ctx context.Context, cl *call) (*http.Request, error) {
	rawURL := c.Endpoint() + cl.path
	signURL := strings.TrimSuffix(rawURL, "/")
	if query, signQuery := encodeParams(cl.params); query != "" {
		rawURL += "?" + query
		signURL += "?" + signQuery
	}
	var body []byte
	digest := signer.SHA256Hex(nil)
	if cl.entity != nil {
		data, err := json.Marshal(cl.entity)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = data
		digest = signer.SHA256Hex(body)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", jsonContentType)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	for k, v := range cl.headers {
		req.Header.Set(k, v)
	}
	switch {
	case cl.secret == "":
		req.Header.Set("Authorization", "Anonymous "+c.accessKey)
	case strings.HasPrefix(cl.secret, "Bearer"):
		tok := &oauth2.Token{
			AccessToken: strings.TrimSpace(strings.TrimPrefix(cl.secret, "Bearer")),
			TokenType:   "Bearer",
		}
		tok.SetAuthHeader(req)
	default:
		u, err := url.Parse(signURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse signing url: %w", err)
		}
		signed := c.signer.SignedHeaders(c.accessKey, cl.secret, cl.method, u, digest, c.now())
		req.Header.Set("Authorization", signed["Authorization"])
		req.Header.Set("X-Amz-Date", signed["x-amz-date"])
	}
	return req, nil
}

// encodeParams returns the query string to send, with every value, and the
// one to sign, which carries only the first value of each key.
func encodeParams(params url.Values) (query, signQuery string) {
	if len(params) == 0 {
		return "", ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var all, first []string
	for _, k := range keys {
		values := params[k]
		if len(values) == 0 {
			continue
		}
		ek := signer.EncodeURIComponent(k)
		first = append(first, ek+"="+signer.EncodeURIComponent(values[0]))
		for _, v := range values {
			all = append(all, ek+"="+signer.EncodeURIComponent(v))
		}
	}
	return strings.Join(all, "&"), strings.Join(first, "&")
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func isTemporary(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}
