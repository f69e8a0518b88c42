package paraclient

import (
	"context"
	"fmt"

	"github.com/erudika/para-client-go/pkg/signer"
)

// ValidationConstraints returns the validation constraints of a type, or of
// all types when typ is blank.
func (c *Client) ValidationConstraints(ctx context.Context, typ string) (map[string]any, error) {
	path := "_constraints"
	if typ != "" {
		path += "/" + signer.EncodeURIComponent(typ)
	}
	resp, err := c.InvokeGet(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get constraints: %w", err)
	}
	return decodeMap(resp)
}

// AddValidationConstraint adds a constraint on a field of a type and returns
// the updated constraints of the type.
func (c *Client) AddValidationConstraint(ctx context.Context, typ, field string, constraint Constraint) (map[string]any, error) {
	if typ == "" || field == "" || constraint.Name == "" {
		return map[string]any{}, nil
	}
	resp, err := c.InvokePut(ctx, constraintPath(typ, field, constraint.Name), constraint.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to add constraint %s on %s.%s: %w", constraint.Name, typ, field, err)
	}
	return decodeMap(resp)
}

// RemoveValidationConstraint removes the named constraint from a field.
func (c *Client) RemoveValidationConstraint(ctx context.Context, typ, field, name string) (map[string]any, error) {
	if typ == "" || field == "" || name == "" {
		return map[string]any{}, nil
	}
	resp, err := c.InvokeDelete(ctx, constraintPath(typ, field, name), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to remove constraint %s on %s.%s: %w", name, typ, field, err)
	}
	return decodeMap(resp)
}

func constraintPath(typ, field, name string) string {
	return "_constraints/" + signer.EncodeURIComponent(typ) + "/" +
		signer.EncodeURIComponent(field) + "/" + signer.EncodeURIComponent(name)
}
