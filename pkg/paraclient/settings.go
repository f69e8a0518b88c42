package paraclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/erudika/para-client-go/pkg/signer"
)

// AppSettings returns all app settings, or the value of a single setting
// wrapped as {"value": ...} when key is set.
func (c *Client) AppSettings(ctx context.Context, key string) (map[string]any, error) {
	path := "_settings"
	if key = strings.TrimSpace(key); key != "" {
		path += "/" + signer.EncodeURIComponent(key)
	}
	resp, err := c.InvokeGet(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get app settings: %w", err)
	}
	return decodeMap(resp)
}

// AddAppSetting adds or overwrites a single app setting.
func (c *Client) AddAppSetting(ctx context.Context, key string, value any) error {
	if key == "" {
		return nil
	}
	body := map[string]any{"value": value}
	if _, err := c.InvokePut(ctx, "_settings/"+signer.EncodeURIComponent(key), body); err != nil {
		return fmt.Errorf("failed to set app setting %s: %w", key, err)
	}
	return nil
}

// SetAppSettings replaces all app settings.
func (c *Client) SetAppSettings(ctx context.Context, settings map[string]any) error {
	if len(settings) == 0 {
		return nil
	}
	if _, err := c.InvokePut(ctx, "_settings", settings); err != nil {
		return fmt.Errorf("failed to replace app settings: %w", err)
	}
	return nil
}

// RemoveAppSetting deletes a single app setting.
func (c *Client) RemoveAppSetting(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if _, err := c.InvokeDelete(ctx, "_settings/"+signer.EncodeURIComponent(key), nil); err != nil {
		return fmt.Errorf("failed to remove app setting %s: %w", key, err)
	}
	return nil
}
