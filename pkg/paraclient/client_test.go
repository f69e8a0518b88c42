package paraclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestNew(t *testing.T) {
	t.Run("Should use default endpoint and api path", func(t *testing.T) {
		c := New(testAccessKey, testSecretKey)
		assert.Equal(t, testAccessKey, c.AccessKey())
		assert.Equal(t, DefaultEndpoint, c.Endpoint())
		assert.Equal(t, DefaultAPIPath, c.APIPath())
		assert.Empty(t, c.AccessToken())
	})

	t.Run("Should load a stored token", func(t *testing.T) {
		store := NewMemoryTokenStore()
		require.NoError(t, store.Save(context.Background(), &Token{AccessToken: "stored"}))
		c := New(testAccessKey, testSecretKey, WithTokenStore(store))
		assert.Equal(t, "stored", c.AccessToken())
	})
}

func TestClient_Endpoint(t *testing.T) {
	t.Run("Should trim trailing slashes", func(t *testing.T) {
		c := New(testAccessKey, testSecretKey)
		c.SetEndpoint("http://localhost:8080/ ")
		assert.Equal(t, "http://localhost:8080", c.Endpoint())
	})

	t.Run("Should fall back to the default when blank", func(t *testing.T) {
		c := New(testAccessKey, testSecretKey, WithEndpoint(""))
		assert.Equal(t, DefaultEndpoint, c.Endpoint())
	})
}

func TestClient_APIPath(t *testing.T) {
	cases := []struct {
		name string
		path string
		want string
	}{
		{name: "Should keep a well formed path", path: "/v2/", want: "/v2/"},
		{name: "Should add missing slashes", path: "v2", want: "/v2/"},
		{name: "Should default when blank", path: "", want: DefaultAPIPath},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := New(testAccessKey, testSecretKey)
			c.SetAPIPath(tc.path)
			assert.Equal(t, tc.want, c.APIPath())
		})
	}
}

func TestClient_FullPath(t *testing.T) {
	c := New(testAccessKey, testSecretKey)

	t.Run("Should prefix resource paths with the api path", func(t *testing.T) {
		assert.Equal(t, "/v1/_me", c.fullPath("_me"))
		assert.Equal(t, "/v1/_me", c.fullPath("/_me"))
		assert.Equal(t, "/v1/", c.fullPath(""))
	})

	t.Run("Should leave the jwt path untouched", func(t *testing.T) {
		assert.Equal(t, JWTPath, c.fullPath(JWTPath))
	})
}

func TestClient_Credential(t *testing.T) {
	ctx := context.Background()

	t.Run("Should use the secret key when not signed in", func(t *testing.T) {
		c := New(testAccessKey, testSecretKey)
		assert.Equal(t, testSecretKey, c.credential(ctx, false))
	})

	t.Run("Should prefer the access token", func(t *testing.T) {
		c := New(testAccessKey, testSecretKey)
		c.SetAccessToken("jwt-token")
		assert.Equal(t, "Bearer jwt-token", c.credential(ctx, false))
	})
}

func TestClient_MissingAccessKey(t *testing.T) {
	t.Run("Should fail without sending a request", func(t *testing.T) {
		f := newFakePara(t, respondWith(http.StatusOK, map[string]any{}))
		c := f.clientWithKeys("", testSecretKey)
		_, err := c.InvokeGet(context.Background(), "_me", nil)
		assert.True(t, errors.Is(err, ErrMissingAccessKey))
		assert.Equal(t, 0, f.count())
	})
}

func TestClient_NoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := httptest.NewServer(respondWith(http.StatusOK, map[string]string{"version": "1.50.0"}))
	c := New(testAccessKey, testSecretKey, WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	ver, err := c.ServerVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.50.0", ver)
	srv.Close()
}
