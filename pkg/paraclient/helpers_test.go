package paraclient

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testAccessKey = "app:test"
	testSecretKey = "secret"
)

var testNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// fakePara is an httptest server standing in for a Para API server. It
// records every request it receives.
type fakePara struct {
	srv *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

func newFakePara(t *testing.T, handler http.HandlerFunc) *fakePara {
	t.Helper()
	f := &fakePara{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		f.mu.Unlock()
		if handler != nil {
			handler(w, r)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePara) client(opts ...Option) *Client {
	return f.clientWithKeys(testAccessKey, testSecretKey, opts...)
}

func (f *fakePara) clientWithKeys(accessKey, secretKey string, opts ...Option) *Client {
	base := []Option{
		WithEndpoint(f.srv.URL),
		WithHTTPClient(f.srv.Client()),
		WithClock(func() time.Time { return testNow }),
	}
	return New(accessKey, secretKey, append(base, opts...)...)
}

func (f *fakePara) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakePara) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests, "no request received")
	return f.requests[len(f.requests)-1]
}

func (f *fakePara) all() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondText(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, body)
	}
}

func respondWith(status int, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, status, v)
	}
}
