package paraclient

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ServerVersion(t *testing.T) {
	t.Run("Should report unknown without a version", func(t *testing.T) {
		f := newFakePara(t, respondWith(http.StatusOK, map[string]any{"info": "Para"}))
		ver, err := f.client().ServerVersion(context.Background())
		require.NoError(t, err)
		assert.Equal(t, UnknownVersion, ver)
	})

	t.Run("Should report unknown for a missing root", func(t *testing.T) {
		f := newFakePara(t, respondWith(http.StatusNotFound, map[string]any{}))
		ver, err := f.client().ServerVersion(context.Background())
		require.NoError(t, err)
		assert.Equal(t, UnknownVersion, ver)
	})
}

func TestClient_NewKeys(t *testing.T) {
	t.Run("Should switch to the new secret", func(t *testing.T) {
		f := newFakePara(t, respondWith(http.StatusOK, map[string]any{
			"accessKey": testAccessKey,
			"secretKey": "new-secret",
		}))
		c := f.client()
		keys, err := c.NewKeys(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "new-secret", keys["secretKey"])
		assert.Equal(t, "new-secret", c.currentSecret())
		assert.Equal(t, "/v1/_newkeys", f.last(t).Path)
	})
}

func TestClient_Types(t *testing.T) {
	ctx := context.Background()

	t.Run("Should list types", func(t *testing.T) {
		f := newFakePara(t, respondWith(http.StatusOK, map[string]string{"dogs": "dog", "users": "user"}))
		types, err := f.client().Types(ctx)
		require.NoError(t, err)
		assert.Equal(t, "dog", types["dogs"])
	})

	t.Run("Should count types from numbers or strings", func(t *testing.T) {
		f := newFakePara(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"dog": 3, "user": "12"}`))
		})
		counts, err := f.client().TypesCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"dog": 3, "user": 12}, counts)
		assert.Equal(t, "true", f.last(t).Query.Get("count"))
	})
}

func TestClient_Me(t *testing.T) {
	ctx := context.Background()

	t.Run("Should authenticate with the given token", func(t *testing.T) {
		f := newFakePara(t, respondWith(http.StatusOK, map[string]any{"id": "u1", "type": "user"}))
		me, err := f.client().Me(ctx, "given")
		require.NoError(t, err)
		assert.Equal(t, "u1", me.ID)
		req := f.last(t)
		assert.Equal(t, "/v1/_me", req.Path)
		assert.Equal(t, "Bearer given", req.Header.Get("Authorization"))
	})

	t.Run("Should not prefix a bearer token twice", func(t *testing.T) {
		f := newFakePara(t, respondWith(http.StatusOK, map[string]any{"id": "u1"}))
		_, err := f.client().Me(ctx, "Bearer given")
		require.NoError(t, err)
		assert.Equal(t, "Bearer given", f.last(t).Header.Get("Authorization"))
	})
}

func TestClient_Vote(t *testing.T) {
	ctx := context.Background()

	t.Run("Should patch the vote", func(t *testing.T) {
		f := newFakePara(t, respondText("true"))
		c := f.client()
		post := NewObject("p1", "post")

		ok, err := c.VoteUp(ctx, post, "u1")
		require.NoError(t, err)
		assert.True(t, ok)
		req := f.last(t)
		assert.Equal(t, http.MethodPatch, req.Method)
		assert.Equal(t, "/v1/posts/p1", req.Path)
		assert.JSONEq(t, `{"_voteup":"u1"}`, string(req.Body))

		_, err = c.VoteDown(ctx, post, "u1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"_votedown":"u1"}`, string(f.last(t).Body))
	})

	t.Run("Should not vote without a voter", func(t *testing.T) {
		f := newFakePara(t, respondText("true"))
		ok, err := f.client().VoteUp(ctx, NewObject("p1", "post"), "")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 0, f.count())
	})
}

func TestClient_RebuildIndex(t *testing.T) {
	t.Run("Should pass the destination index", func(t *testing.T) {
		f := newFakePara(t, respondWith(http.StatusOK, map[string]any{"reindexed": 10}))
		result, err := f.client().RebuildIndex(context.Background(), "backup")
		require.NoError(t, err)
		assert.InDelta(t, 10, result["reindexed"], 0)
		req := f.last(t)
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/v1/_reindex", req.Path)
		assert.Equal(t, "backup", req.Query.Get("destinationIndex"))
	})
}

func TestClient_Utils(t *testing.T) {
	ctx := context.Background()

	t.Run("Should parse the server timestamp", func(t *testing.T) {
		f := newFakePara(t, respondText("1700000000000"))
		ts, err := f.client().Timestamp(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1700000000000), ts)
		assert.Equal(t, "/v1/utils/timestamp", f.last(t).Path)
	})

	t.Run("Should reject a malformed timestamp", func(t *testing.T) {
		f := newFakePara(t, respondText("soon"))
		_, err := f.client().Timestamp(ctx)
		assert.Error(t, err)
	})

	t.Run("Should call the text utilities", func(t *testing.T) {
		f := newFakePara(t, respondText("result"))
		c := f.client()

		id, err := c.NewID(ctx)
		require.NoError(t, err)
		assert.Equal(t, "result", id)
		assert.Equal(t, "/v1/utils/newid", f.last(t).Path)

		_, err = c.FormatDate(ctx, "yyyy MMM dd", "en_US")
		require.NoError(t, err)
		assert.Equal(t, "en_US", f.last(t).Query.Get("locale"))

		_, err = c.NoSpaces(ctx, "a b", "-")
		require.NoError(t, err)
		assert.Equal(t, "-", f.last(t).Query.Get("replacement"))

		_, err = c.StripAndTrim(ctx, " a! ")
		require.NoError(t, err)
		assert.Equal(t, "/v1/utils/nosymbols", f.last(t).Path)

		_, err = c.MarkdownToHTML(ctx, "# hi")
		require.NoError(t, err)
		assert.Equal(t, "# hi", f.last(t).Query.Get("md"))

		_, err = c.Approximately(ctx, 60000)
		require.NoError(t, err)
		assert.Equal(t, "/v1/utils/timeago", f.last(t).Path)
		assert.Equal(t, "60000", f.last(t).Query.Get("delta"))
	})
}
