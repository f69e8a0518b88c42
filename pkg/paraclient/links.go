package paraclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/erudika/para-client-go/pkg/signer"
)

func linksPath(obj *Object, type2 string) string {
	return obj.ObjectURI() + "/links/" + signer.EncodeURIComponent(type2)
}

func hasID(obj *Object) bool {
	return obj != nil && obj.ID != ""
}

func (c *Client) linkedItems(ctx context.Context, obj *Object, type2 string, params url.Values, pager *Pager) ([]*Object, error) {
	resp, err := c.InvokeGet(ctx, linksPath(obj, type2), params)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s linked to %s: %w", type2, obj.ID, err)
	}
	return decodeItems(resp, pager)
}

func (c *Client) linkedCount(ctx context.Context, obj *Object, type2 string, params url.Values) (uint64, error) {
	resp, err := c.InvokeGet(ctx, linksPath(obj, type2), params)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s linked to %s: %w", type2, obj.ID, err)
	}
	return decodeTotalHits(resp)
}

// CountLinks returns the number of objects of type2 linked to obj.
func (c *Client) CountLinks(ctx context.Context, obj *Object, type2 string) (uint64, error) {
	if !hasID(obj) || type2 == "" {
		return 0, nil
	}
	return c.linkedCount(ctx, obj, type2, url.Values{"count": {"true"}})
}

// LinkedObjects returns the objects of type2 linked to obj in a many-to-many
// relationship.
func (c *Client) LinkedObjects(ctx context.Context, obj *Object, type2 string, pager *Pager) ([]*Object, error) {
	if !hasID(obj) || type2 == "" {
		return []*Object{}, nil
	}
	return c.linkedItems(ctx, obj, type2, pager.Params(), pager)
}

// FindLinkedObjects searches the objects of type2 linked to obj. A blank
// query matches all of them.
func (c *Client) FindLinkedObjects(ctx context.Context, obj *Object, type2, field, query string, pager *Pager) ([]*Object, error) {
	if !hasID(obj) || type2 == "" {
		return []*Object{}, nil
	}
	params := pager.Params()
	params.Set("field", field)
	params.Set("q", orWildcard(query))
	return c.linkedItems(ctx, obj, type2, params, pager)
}

// IsLinked reports whether obj is linked to the object type2/id2.
func (c *Client) IsLinked(ctx context.Context, obj *Object, type2, id2 string) (bool, error) {
	if !hasID(obj) || type2 == "" || id2 == "" {
		return false, nil
	}
	resp, err := c.InvokeGet(ctx, linksPath(obj, type2)+"/"+signer.EncodeURIComponent(id2), nil)
	if err != nil {
		return false, fmt.Errorf("failed to check link %s -> %s: %w", obj.ID, id2, err)
	}
	return resp.IsTrue(), nil
}

// IsLinkedToObject reports whether obj is linked to other.
func (c *Client) IsLinkedToObject(ctx context.Context, obj, other *Object) (bool, error) {
	if !hasID(obj) || !hasID(other) {
		return false, nil
	}
	return c.IsLinked(ctx, obj, other.Type, other.ID)
}

// Link links obj to the object with id2 in a many-to-many relationship and
// returns the id of the link. The type of the second object is resolved by
// the server.
func (c *Client) Link(ctx context.Context, obj *Object, id2 string) (string, error) {
	if !hasID(obj) || id2 == "" {
		return "", nil
	}
	resp, err := c.InvokePost(ctx, obj.ObjectURI()+"/links/"+signer.EncodeURIComponent(id2), nil)
	if err != nil {
		return "", fmt.Errorf("failed to link %s -> %s: %w", obj.ID, id2, err)
	}
	return strings.TrimSpace(resp.String()), nil
}

// Unlink removes the link between obj and type2/id2. Objects are left untouched.
func (c *Client) Unlink(ctx context.Context, obj *Object, type2, id2 string) error {
	if !hasID(obj) || type2 == "" || id2 == "" {
		return nil
	}
	if _, err := c.InvokeDelete(ctx, linksPath(obj, type2)+"/"+signer.EncodeURIComponent(id2), nil); err != nil {
		return fmt.Errorf("failed to unlink %s -> %s: %w", obj.ID, id2, err)
	}
	return nil
}

// UnlinkAll removes all links of obj.
func (c *Client) UnlinkAll(ctx context.Context, obj *Object) error {
	if !hasID(obj) {
		return nil
	}
	if _, err := c.InvokeDelete(ctx, obj.ObjectURI()+"/links", nil); err != nil {
		return fmt.Errorf("failed to unlink all from %s: %w", obj.ID, err)
	}
	return nil
}

// CountChildren returns the number of child objects of type2 whose parent is obj.
func (c *Client) CountChildren(ctx context.Context, obj *Object, type2 string) (uint64, error) {
	if !hasID(obj) || type2 == "" {
		return 0, nil
	}
	return c.linkedCount(ctx, obj, type2, url.Values{"count": {"true"}, "childrenonly": {"true"}})
}

// Children returns the child objects of type2 in a one-to-many relationship.
func (c *Client) Children(ctx context.Context, obj *Object, type2 string, pager *Pager) ([]*Object, error) {
	if !hasID(obj) || type2 == "" {
		return []*Object{}, nil
	}
	params := pager.Params()
	params.Set("childrenonly", "true")
	return c.linkedItems(ctx, obj, type2, params, pager)
}

// ChildrenWhere returns the child objects of type2 whose field equals term.
func (c *Client) ChildrenWhere(ctx context.Context, obj *Object, type2, field, term string, pager *Pager) ([]*Object, error) {
	if !hasID(obj) || type2 == "" {
		return []*Object{}, nil
	}
	params := pager.Params()
	params.Set("childrenonly", "true")
	params.Set("field", field)
	params.Set("term", term)
	return c.linkedItems(ctx, obj, type2, params, pager)
}

// FindChildren searches the child objects of type2. A blank query matches all.
func (c *Client) FindChildren(ctx context.Context, obj *Object, type2, query string, pager *Pager) ([]*Object, error) {
	if !hasID(obj) || type2 == "" {
		return []*Object{}, nil
	}
	params := pager.Params()
	params.Set("childrenonly", "true")
	params.Set("q", orWildcard(query))
	return c.linkedItems(ctx, obj, type2, params, pager)
}

// DeleteChildren permanently deletes all child objects of type2.
func (c *Client) DeleteChildren(ctx context.Context, obj *Object, type2 string) error {
	if !hasID(obj) || type2 == "" {
		return nil
	}
	if _, err := c.InvokeDelete(ctx, linksPath(obj, type2), url.Values{"childrenonly": {"true"}}); err != nil {
		return fmt.Errorf("failed to delete %s children of %s: %w", type2, obj.ID, err)
	}
	return nil
}

func orWildcard(query string) string {
	if query == "" {
		return "*"
	}
	return query
}
