package paraclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// UnknownVersion is reported when the server does not disclose its version.
const UnknownVersion = "unknown"

// ServerVersion returns the version of the Para server.
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	resp, err := c.InvokeGet(ctx, "", nil)
	if err != nil {
		return "", fmt.Errorf("failed to get server version: %w", err)
	}
	var info struct {
		Version *string `json:"version"`
	}
	if err := resp.Decode(&info); err != nil {
		return "", err
	}
	if info.Version == nil || *info.Version == "" {
		return UnknownVersion, nil
	}
	return *info.Version, nil
}

// NewKeys generates a new pair of access and secret keys. The old keys stop
// working and the client switches to the new secret.
func (c *Client) NewKeys(ctx context.Context) (map[string]any, error) {
	resp, err := c.InvokePost(ctx, "_newkeys", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate new keys: %w", err)
	}
	keys, err := decodeMap(resp)
	if err != nil {
		return nil, err
	}
	if secret, ok := keys["secretKey"].(string); ok && secret != "" {
		c.mu.Lock()
		c.secretKey = secret
		c.mu.Unlock()
	}
	return keys, nil
}

// Types returns the registered types of the app, keyed by plural name.
func (c *Client) Types(ctx context.Context) (map[string]string, error) {
	resp, err := c.InvokeGet(ctx, "_types", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get types: %w", err)
	}
	types := map[string]string{}
	if err := resp.Decode(&types); err != nil {
		return nil, err
	}
	return types, nil
}

// TypesCount returns the number of objects of each type in the app.
func (c *Client) TypesCount(ctx context.Context) (map[string]int64, error) {
	resp, err := c.InvokeGet(ctx, "_types", url.Values{"count": {"true"}})
	if err != nil {
		return nil, fmt.Errorf("failed to count types: %w", err)
	}
	raw := map[string]json.RawMessage{}
	if err := resp.Decode(&raw); err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(raw))
	for typ, v := range raw {
		n, err := strconv.ParseInt(strings.Trim(string(v), `"`), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid count for type %s: %w", typ, err)
		}
		counts[typ] = n
	}
	return counts, nil
}

// Me returns the authenticated user or app. With a non-blank accessToken the
// request is authenticated with that JWT instead of the client credentials.
func (c *Client) Me(ctx context.Context, accessToken string) (*Object, error) {
	var (
		resp *Response
		err  error
	)
	if accessToken == "" {
		resp, err = c.InvokeGet(ctx, "_me", nil)
	} else {
		if !strings.HasPrefix(accessToken, "Bearer") {
			accessToken = "Bearer " + accessToken
		}
		resp, err = c.do(ctx, &call{
			method: http.MethodGet,
			path:   c.fullPath("_me"),
			secret: accessToken,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated subject: %w", err)
	}
	return decodeObject(resp)
}

// VoteUp registers a positive vote by voterID and reports whether it counted.
func (c *Client) VoteUp(ctx context.Context, obj *Object, voterID string) (bool, error) {
	return c.vote(ctx, obj, "_voteup", voterID)
}

// VoteDown registers a negative vote by voterID and reports whether it counted.
func (c *Client) VoteDown(ctx context.Context, obj *Object, voterID string) (bool, error) {
	return c.vote(ctx, obj, "_votedown", voterID)
}

func (c *Client) vote(ctx context.Context, obj *Object, direction, voterID string) (bool, error) {
	if !hasID(obj) || voterID == "" {
		return false, nil
	}
	resp, err := c.InvokePatch(ctx, obj.ObjectURI(), map[string]string{direction: voterID})
	if err != nil {
		return false, fmt.Errorf("failed to vote on %s: %w", obj.ID, err)
	}
	return resp.IsTrue(), nil
}

// RebuildIndex rebuilds the search index of the app. A non-blank
// destinationIndex names an existing index to rebuild into.
func (c *Client) RebuildIndex(ctx context.Context, destinationIndex string) (map[string]any, error) {
	var params url.Values
	if destinationIndex != "" {
		params = url.Values{"destinationIndex": {destinationIndex}}
	}
	resp, err := c.invoke(ctx, http.MethodPost, "_reindex", params, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}
	return decodeMap(resp)
}
