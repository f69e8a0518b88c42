package paraclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

func (c *Client) utility(ctx context.Context, name string, params url.Values) (string, error) {
	resp, err := c.InvokeGet(ctx, "utils/"+name, params)
	if err != nil {
		return "", fmt.Errorf("failed to call utils/%s: %w", name, err)
	}
	return resp.String(), nil
}

// NewID returns a new unique id generated by the server.
func (c *Client) NewID(ctx context.Context) (string, error) {
	return c.utility(ctx, "newid", nil)
}

// Timestamp returns the current server time in milliseconds since the epoch.
func (c *Client) Timestamp(ctx context.Context) (int64, error) {
	body, err := c.utility(ctx, "timestamp", nil)
	if err != nil {
		return 0, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return 0, nil
	}
	ts, err := strconv.ParseInt(body, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", body, err)
	}
	return ts, nil
}

// FormatDate formats the current date, e.g. format "yyyy MMM dd" and locale "en_US".
func (c *Client) FormatDate(ctx context.Context, format, locale string) (string, error) {
	return c.utility(ctx, "formatdate", url.Values{"format": {format}, "locale": {locale}})
}

// NoSpaces replaces the spaces in s with replaceWith.
func (c *Client) NoSpaces(ctx context.Context, s, replaceWith string) (string, error) {
	return c.utility(ctx, "nospaces", url.Values{"string": {s}, "replacement": {replaceWith}})
}

// StripAndTrim strips all symbols, punctuation, whitespace and control characters from s.
func (c *Client) StripAndTrim(ctx context.Context, s string) (string, error) {
	return c.utility(ctx, "nosymbols", url.Values{"string": {s}})
}

// MarkdownToHTML converts Markdown to HTML.
func (c *Client) MarkdownToHTML(ctx context.Context, markdown string) (string, error) {
	return c.utility(ctx, "md2html", url.Values{"md": {markdown}})
}

// Approximately returns a human readable time span for delta milliseconds,
// e.g. "5 minutes".
func (c *Client) Approximately(ctx context.Context, delta uint64) (string, error) {
	return c.utility(ctx, "timeago", url.Values{"delta": {strconv.FormatUint(delta, 10)}})
}
