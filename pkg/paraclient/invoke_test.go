package paraclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/erudika/para-client-go/pkg/signer"
	"github.com/erudika/para-client-go/pkg/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestClient_Invoke(t *testing.T) {
	ctx := context.Background()

	t.Run("Should sign requests with the secret key", func(t *testing.T) {
		f := newFakePara(t, respondWith(http.StatusOK, map[string]any{"ok": true}))
		c := f.client()
		resp, err := c.InvokeGet(ctx, "dogs/123", url.Values{"limit": {"10"}})
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.True(t, resp.IsJSON())

		u, err := url.Parse(f.srv.URL + "/v1/dogs/123?limit=10")
		require.NoError(t, err)
		want := signer.New().SignedHeaders(testAccessKey, testSecretKey, http.MethodGet, u, signer.SHA256Hex(nil), testNow)

		req := f.last(t)
		assert.Equal(t, "/v1/dogs/123", req.Path)
		assert.Equal(t, want["Authorization"], req.Header.Get("Authorization"))
		assert.Equal(t, "20250314T150926Z", req.Header.Get("X-Amz-Date"))
		assert.Equal(t, version.UserAgent(), req.Header.Get("User-Agent"))
	})

	t.Run("Should sign the body digest of json entities", func(t *testing.T) {
		f := newFakePara(t, respondWith(http.StatusOK, map[string]any{}))
		c := f.client()
		_, err := c.InvokePost(ctx, "dogs", map[string]string{"name": "rex"})
		require.NoError(t, err)

		req := f.last(t)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"name":"rex"}`, string(req.Body))

		u, err := url.Parse(f.srv.URL + "/v1/dogs")
		require.NoError(t, err)
		want := signer.New().SignedHeaders(testAccessKey, testSecretKey, http.MethodPost, u, signer.SHA256Hex(req.Body), testNow)
		assert.Equal(t, want["Authorization"], req.Header.Get("Authorization"))
	})

	t.Run("Should drop the trailing slash from the signed url", func(t *testing.T) {
		f := newFakePara(t, respondWith(http.StatusOK, map[string]any{}))
		c := f.client()
		_, err := c.InvokeGet(ctx, "", nil)
		require.NoError(t, err)

		u, err := url.Parse(f.srv.URL + "/v1")
		require.NoError(t, err)
		want := signer.New().SignedHeaders(testAccessKey, testSecretKey, http.MethodGet, u, signer.SHA256Hex(nil), testNow)
		req := f.last(t)
		assert.Equal(t, "/v1/", req.Path)
		assert.Equal(t, want["Authorization"], req.Header.Get("Authorization"))
	})

	t.Run("Should send anonymous requests without a secret", func(t *testing.T) {
		f := newFakePara(t, respondWith(http.StatusOK, map[string]any{}))
		c := f.clientWithKeys(testAccessKey, "")
		_, err := c.InvokeGet(ctx, "_me", nil)
		require.NoError(t, err)
		req := f.last(t)
		assert.Equal(t, "Anonymous "+testAccessKey, req.Header.Get("Authorization"))
		assert.Empty(t, req.Header.Get("X-Amz-Date"))
	})

	t.Run("Should send the access token as a bearer credential", func(t *testing.T) {
		f := newFakePara(t, respondWith(http.StatusOK, map[string]any{}))
		c := f.client()
		c.SetAccessToken("jwt-token")
		_, err := c.InvokeDelete(ctx, "dogs/1", nil)
		require.NoError(t, err)
		req := f.last(t)
		assert.Equal(t, "Bearer jwt-token", req.Header.Get("Authorization"))
		assert.Empty(t, req.Header.Get("X-Amz-Date"))
	})

	t.Run("Should send every value of multi valued params", func(t *testing.T) {
		f := newFakePara(t, respondWith(http.StatusOK, []any{}))
		c := f.client()
		_, err := c.InvokeGet(ctx, "_batch", url.Values{"ids": {"a", "b c"}})
		require.NoError(t, err)
		req := f.last(t)
		assert.Equal(t, []string{"a", "b c"}, req.Query["ids"])

		u, err := url.Parse(f.srv.URL + "/v1/_batch?ids=a")
		require.NoError(t, err)
		want := signer.New().SignedHeaders(testAccessKey, testSecretKey, http.MethodGet, u, signer.SHA256Hex(nil), testNow)
		assert.Equal(t, want["Authorization"], req.Header.Get("Authorization"))
	})
}

func TestClient_InvokeResponses(t *testing.T) {
	ctx := context.Background()

	t.Run("Should return nil for not found", func(t *testing.T) {
		f := newFakePara(t, respondWith(http.StatusNotFound, map[string]any{"message": "missing"}))
		resp, err := f.client().InvokeGet(ctx, "dogs/1", nil)
		assert.NoError(t, err)
		assert.Nil(t, resp)
	})

	t.Run("Should return nil for an empty body", func(t *testing.T) {
		f := newFakePara(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		resp, err := f.client().InvokeDelete(ctx, "dogs/1", nil)
		assert.NoError(t, err)
		assert.Nil(t, resp)
	})

	t.Run("Should return an api error for other failures", func(t *testing.T) {
		f := newFakePara(t, respondWith(http.StatusBadRequest, map[string]any{"code": 400, "message": "invalid"}))
		_, err := f.client().InvokePut(ctx, "dogs/1", map[string]any{})
		require.Error(t, err)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, http.MethodPut, apiErr.Method)
		assert.Equal(t, "/v1/dogs/1", apiErr.Path)
		assert.Equal(t, "invalid", apiErr.Message)
		assert.True(t, IsStatus(err, http.StatusBadRequest))
		assert.False(t, apiErr.Temporary())
	})

	t.Run("Should use a plain text body as the error message", func(t *testing.T) {
		f := newFakePara(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("denied\n"))
		})
		_, err := f.client().InvokeGet(ctx, "dogs", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 403: denied")
	})
}

func TestClient_Retry(t *testing.T) {
	ctx := context.Background()

	flaky := func(failures int32) (http.HandlerFunc, *atomic.Int32) {
		var calls atomic.Int32
		return func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) <= failures {
				respondJSON(w, http.StatusServiceUnavailable, map[string]any{"message": "busy"})
				return
			}
			respondJSON(w, http.StatusOK, map[string]any{"id": "1"})
		}, &calls
	}

	t.Run("Should retry idempotent requests on temporary failures", func(t *testing.T) {
		handler, calls := flaky(2)
		f := newFakePara(t, handler)
		c := f.client(WithRetry(3, time.Millisecond))
		resp, err := c.InvokeGet(ctx, "dogs/1", nil)
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("Should give up after the configured retries", func(t *testing.T) {
		handler, calls := flaky(10)
		f := newFakePara(t, handler)
		c := f.client(WithRetry(1, time.Millisecond))
		_, err := c.InvokeGet(ctx, "dogs/1", nil)
		require.Error(t, err)
		assert.True(t, IsStatus(err, http.StatusServiceUnavailable))
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("Should not retry posts", func(t *testing.T) {
		handler, calls := flaky(1)
		f := newFakePara(t, handler)
		c := f.client(WithRetry(3, time.Millisecond))
		_, err := c.InvokePost(ctx, "dogs", map[string]any{})
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("Should not retry permanent failures", func(t *testing.T) {
		var calls atomic.Int32
		f := newFakePara(t, func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			respondJSON(w, http.StatusUnauthorized, map[string]any{"message": "no"})
		})
		c := f.client(WithRetry(3, time.Millisecond))
		_, err := c.InvokeGet(ctx, "dogs/1", nil)
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})
}

// countingTransport counts round trips before handing them to base.
type countingTransport struct {
	base  http.RoundTripper
	calls atomic.Int32
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return c.base.RoundTrip(req)
}

func TestClient_RetryTransportErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Should retry a refused connection", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		endpoint := srv.URL
		srv.Close()
		transport := &countingTransport{base: &http.Transport{}}
		c := New(testAccessKey, testSecretKey,
			WithEndpoint(endpoint),
			WithHTTPClient(&http.Client{Transport: transport}),
			WithRetry(2, time.Millisecond))
		_, err := c.InvokeGet(ctx, "dogs/1", nil)
		require.Error(t, err)
		assert.Equal(t, int32(3), transport.calls.Load())
	})

	t.Run("Should not retry an untrusted certificate", func(t *testing.T) {
		srv := httptest.NewUnstartedServer(http.NotFoundHandler())
		srv.Config.ErrorLog = log.New(io.Discard, "", 0)
		srv.StartTLS()
		t.Cleanup(srv.Close)
		transport := &countingTransport{base: &http.Transport{}}
		t.Cleanup(transport.base.(*http.Transport).CloseIdleConnections)
		c := New(testAccessKey, testSecretKey,
			WithEndpoint(srv.URL),
			WithHTTPClient(&http.Client{Transport: transport}),
			WithRetry(3, time.Millisecond))
		_, err := c.InvokeGet(ctx, "dogs/1", nil)
		require.Error(t, err)
		assert.Equal(t, int32(1), transport.calls.Load())
	})
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIsTemporary(t *testing.T) {
	ctx := context.Background()
	wrap := func(err error) error {
		return fmt.Errorf("request 'GET /v1/dogs' failed: %w", &url.Error{Op: "Get", URL: "http://para", Err: err})
	}

	t.Run("Should retry timeouts and dropped connections", func(t *testing.T) {
		assert.True(t, isTemporary(ctx, wrap(timeoutError{})))
		assert.True(t, isTemporary(ctx, wrap(&net.OpError{Op: "read", Err: syscall.ECONNRESET})))
		assert.True(t, isTemporary(ctx, wrap(io.ErrUnexpectedEOF)))
		assert.True(t, isTemporary(ctx, &APIError{StatusCode: http.StatusServiceUnavailable}))
	})

	t.Run("Should not retry permanent transport errors", func(t *testing.T) {
		assert.False(t, isTemporary(ctx, wrap(&tls.CertificateVerificationError{Err: errors.New("unknown authority")})))
		assert.False(t, isTemporary(ctx, wrap(errors.New("unsupported protocol scheme"))))
		assert.False(t, isTemporary(ctx, &APIError{StatusCode: http.StatusBadRequest}))
	})

	t.Run("Should not retry once the context is done", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		assert.False(t, isTemporary(canceled, wrap(timeoutError{})))
	})
}

func TestClient_RateLimit(t *testing.T) {
	t.Run("Should pass requests through the limiter", func(t *testing.T) {
		f := newFakePara(t, respondWith(http.StatusOK, map[string]any{}))
		c := f.client(WithRateLimit(rate.Limit(1000), 1))
		for i := 0; i < 3; i++ {
			_, err := c.InvokeGet(context.Background(), "dogs", nil)
			require.NoError(t, err)
		}
		assert.Equal(t, 3, f.count())
	})

	t.Run("Should stop waiting when the context is done", func(t *testing.T) {
		f := newFakePara(t, respondWith(http.StatusOK, map[string]any{}))
		c := f.client(WithRateLimit(rate.Every(time.Hour), 1))
		_, err := c.InvokeGet(context.Background(), "dogs", nil)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = c.InvokeGet(ctx, "dogs", nil)
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "rate limiter"))
		assert.Equal(t, 1, f.count())
	})
}

func TestEncodeParams(t *testing.T) {
	t.Run("Should sort keys and encode values", func(t *testing.T) {
		query, signQuery := encodeParams(url.Values{
			"q":   {"a b"},
			"ids": {"1", "2"},
		})
		assert.Equal(t, "ids=1&ids=2&q=a%20b", query)
		assert.Equal(t, "ids=1&q=a%20b", signQuery)
	})

	t.Run("Should return nothing for empty params", func(t *testing.T) {
		query, signQuery := encodeParams(nil)
		assert.Empty(t, query)
		assert.Empty(t, signQuery)
	})
}

func TestResponse(t *testing.T) {
	t.Run("Should treat a nil response as empty", func(t *testing.T) {
		var r *Response
		assert.False(t, r.IsJSON())
		assert.False(t, r.IsTrue())
		assert.Empty(t, r.String())
		var v map[string]any
		assert.NoError(t, r.Decode(&v))
		assert.Nil(t, v)
	})

	t.Run("Should recognise a true body", func(t *testing.T) {
		r := &Response{Body: []byte("true\n")}
		assert.True(t, r.IsTrue())
	})
}
