package paraclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/erudika/para-client-go/pkg/signer"
)

// GuestAccess is appended to the granted methods to let unauthenticated
// requests through.
const GuestAccess = "?"

func permissionsPath(subjectID string, resourcePath ...string) string {
	path := "_permissions/" + signer.EncodeURIComponent(subjectID)
	for _, p := range resourcePath {
		path += "/" + signer.EncodeURIComponent(p)
	}
	return path
}

// ResourcePermissions returns the permissions of a subject, or of all
// subjects when subjectID is blank.
func (c *Client) ResourcePermissions(ctx context.Context, subjectID string) (map[string]any, error) {
	path := "_permissions"
	if subjectID != "" {
		path = permissionsPath(subjectID)
	}
	resp, err := c.InvokeGet(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get permissions: %w", err)
	}
	return decodeMap(resp)
}

// GrantResourcePermission allows subjectID to call the given HTTP methods on
// resourcePath. allowGuest only applies to the wildcard subject "*".
func (c *Client) GrantResourcePermission(
	ctx context.Context,
	subjectID, resourcePath string,
	methods []string,
	allowGuest bool,
) (map[string]any, error) {
	if subjectID == "" || resourcePath == "" || len(methods) == 0 {
		return map[string]any{}, nil
	}
	permit := make([]string, 0, len(methods)+1)
	for _, m := range methods {
		permit = append(permit, strings.ToUpper(m))
	}
	if allowGuest && subjectID == "*" {
		permit = append(permit, GuestAccess)
	}
	resp, err := c.InvokePut(ctx, permissionsPath(subjectID, resourcePath), permit)
	if err != nil {
		return nil, fmt.Errorf("failed to grant permission on %s to %s: %w", resourcePath, subjectID, err)
	}
	return decodeMap(resp)
}

// RevokeResourcePermission removes the permissions of subjectID on resourcePath.
func (c *Client) RevokeResourcePermission(ctx context.Context, subjectID, resourcePath string) (map[string]any, error) {
	if subjectID == "" || resourcePath == "" {
		return map[string]any{}, nil
	}
	resp, err := c.InvokeDelete(ctx, permissionsPath(subjectID, resourcePath), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke permission on %s from %s: %w", resourcePath, subjectID, err)
	}
	return decodeMap(resp)
}

// RevokeAllResourcePermissions removes every permission of subjectID.
func (c *Client) RevokeAllResourcePermissions(ctx context.Context, subjectID string) (map[string]any, error) {
	if subjectID == "" {
		return map[string]any{}, nil
	}
	resp, err := c.InvokeDelete(ctx, permissionsPath(subjectID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke permissions from %s: %w", subjectID, err)
	}
	return decodeMap(resp)
}

// IsAllowedTo reports whether subjectID may call httpMethod on resourcePath.
// Any failure answers false, and the error is returned alongside.
func (c *Client) IsAllowedTo(ctx context.Context, subjectID, resourcePath, httpMethod string) (bool, error) {
	if subjectID == "" || resourcePath == "" || httpMethod == "" {
		return false, nil
	}
	path := permissionsPath(subjectID, resourcePath) + "/" + strings.ToUpper(httpMethod)
	resp, err := c.InvokeGet(ctx, path, nil)
	if err != nil {
		return false, fmt.Errorf("failed to check permission on %s for %s: %w", resourcePath, subjectID, err)
	}
	return resp.IsTrue(), nil
}
