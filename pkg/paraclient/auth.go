package paraclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// jwtData is the "jwt" object returned by the authentication resource.
// Times are in milliseconds since the epoch.
type jwtData struct {
	AccessToken string `json:"access_token"`
	Expires     int64  `json:"expires"`
	Refresh     int64  `json:"refresh"`
}

type authResult struct {
	User *Object  `json:"user"`
	JWT  *jwtData `json:"jwt"`
}

func (c *Client) currentToken() *Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// AccessToken returns the JWT access token, or "" if not signed in.
func (c *Client) AccessToken() string {
	if tok := c.currentToken(); tok != nil {
		return tok.AccessToken
	}
	return ""
}

// SetAccessToken sets the JWT access token. Expiry and refresh times are read
// from the "exp" and "refresh" claims when present. A blank token signs out
// locally.
func (c *Client) SetAccessToken(token string) {
	if token == "" {
		c.mu.Lock()
		c.token = nil
		c.mu.Unlock()
		return
	}
	tok := &Token{AccessToken: token}
	claims, err := decodeClaims(token)
	if err != nil {
		c.logger.Warn("failed to decode access token claims", zap.Error(err))
	} else if _, ok := claims["exp"]; ok {
		tok.Expires = claimTime(claims["exp"])
		tok.NextRefresh = claimTime(claims["refresh"])
	}
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

// TokenSource exposes the current JWT as an oauth2.TokenSource.
func (c *Client) TokenSource() oauth2.TokenSource {
	return jwtTokenSource{c: c}
}

type jwtTokenSource struct {
	c *Client
}

func (s jwtTokenSource) Token() (*oauth2.Token, error) {
	tok := s.c.currentToken()
	if tok == nil {
		return nil, ErrNotSignedIn
	}
	return &oauth2.Token{
		AccessToken: tok.AccessToken,
		TokenType:   "Bearer",
		Expiry:      tok.Expires,
	}, nil
}

func decodeClaims(token string) (map[string]any, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("malformed token: expected 3 parts, got %d", len(parts))
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, fmt.Errorf("failed to decode token payload: %w", err)
	}
	claims := map[string]any{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse token claims: %w", err)
	}
	return claims, nil
}

// claimTime converts a numeric claim to a time. Values above 1e12 are
// taken as milliseconds, smaller ones as seconds.
func claimTime(v any) time.Time {
	n, ok := v.(float64)
	if !ok || n <= 0 {
		return time.Time{}
	}
	if n > 1e12 {
		return time.UnixMilli(int64(n))
	}
	return time.Unix(int64(n), 0)
}

func (c *Client) saveAccessToken(ctx context.Context, jwt *jwtData) {
	if jwt == nil || jwt.AccessToken == "" {
		return
	}
	tok := &Token{AccessToken: jwt.AccessToken}
	if jwt.Expires > 0 {
		tok.Expires = time.UnixMilli(jwt.Expires)
	}
	if jwt.Refresh > 0 {
		tok.NextRefresh = time.UnixMilli(jwt.Refresh)
	}
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
	if err := c.store.Save(ctx, tok); err != nil {
		c.logger.Warn("failed to persist access token", zap.Error(err))
	}
}

func (c *Client) clearAccessToken(ctx context.Context) {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("failed to clear persisted access token", zap.Error(err))
	}
}

// SignIn exchanges an identity provider access token for a JWT and returns
// the authenticated user. A new user is created on the server if needed.
// Twitter tokens must be passed as "oauth_token:oauth_token_secret".
// With rememberJWT the JWT is kept and persisted for later requests.
// A nil user is returned when the server does not authenticate the token.
func (c *Client) SignIn(ctx context.Context, provider, providerToken string, rememberJWT bool) (*Object, error) {
	if provider == "" || providerToken == "" {
		return nil, nil
	}
	credentials := map[string]string{
		"appid":    c.accessKey,
		"provider": provider,
		"token":    providerToken,
	}
	resp, err := c.InvokePost(ctx, JWTPath, credentials)
	if err != nil {
		c.clearAccessToken(ctx)
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	var result authResult
	if err := resp.Decode(&result); err != nil {
		c.clearAccessToken(ctx)
		return nil, err
	}
	if result.User == nil || result.JWT == nil {
		c.clearAccessToken(ctx)
		return nil, nil
	}
	if rememberJWT {
		c.saveAccessToken(ctx, result.JWT)
	}
	return result.User, nil
}

// SignOut clears the JWT locally. The token is not revoked, see RevokeAllTokens.
func (c *Client) SignOut(ctx context.Context) {
	c.clearAccessToken(ctx)
}

// RefreshToken refreshes the JWT when it is still valid and its refresh time
// has come. It reports whether a new token was obtained. On failure the
// token is cleared.
func (c *Client) RefreshToken(ctx context.Context) (bool, error) {
	tok := c.currentToken()
	if tok == nil {
		return false, nil
	}
	now := c.now()
	notExpired := !tok.Expires.IsZero() && tok.Expires.After(now)
	canRefresh := !tok.NextRefresh.IsZero() &&
		(tok.NextRefresh.Before(now) || tok.NextRefresh.After(tok.Expires))
	if !notExpired || !canRefresh {
		return false, nil
	}
	resp, err := c.InvokeGet(ctx, JWTPath, nil)
	if err != nil {
		c.clearAccessToken(ctx)
		return false, fmt.Errorf("failed to refresh token: %w", err)
	}
	var result authResult
	if err := resp.Decode(&result); err != nil {
		return false, err
	}
	if result.User == nil || result.JWT == nil {
		return false, nil
	}
	c.saveAccessToken(ctx, result.JWT)
	return true, nil
}

// RevokeAllTokens revokes all tokens of the signed in user, i.e. logs out
// everywhere. It requires a valid JWT.
func (c *Client) RevokeAllTokens(ctx context.Context) (bool, error) {
	resp, err := c.InvokeDelete(ctx, JWTPath, nil)
	if err != nil {
		return false, fmt.Errorf("failed to revoke tokens: %w", err)
	}
	return resp != nil, nil
}
