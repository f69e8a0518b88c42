package paraclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/erudika/para-client-go/pkg/signer"
)

// searchResult is the envelope returned by list, search and link queries.
type searchResult struct {
	Items     []*Object `json:"items"`
	TotalHits uint64    `json:"totalHits"`
	LastKey   *string   `json:"lastKey"`
}

// decodeItems reads the objects under "items" and records the total hits and
// last key on the pager.
func decodeItems(resp *Response, pager *Pager) ([]*Object, error) {
	if resp == nil {
		return []*Object{}, nil
	}
	var raw map[string]json.RawMessage
	if err := resp.Decode(&raw); err != nil {
		return nil, err
	}
	if _, ok := raw["items"]; !ok {
		return []*Object{}, nil
	}
	var result searchResult
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	if pager != nil {
		if _, ok := raw["totalHits"]; ok {
			pager.Count = result.TotalHits
		}
		if result.LastKey != nil {
			pager.LastKey = *result.LastKey
		}
	}
	return compact(result.Items), nil
}

// decodeTotalHits reads the "totalHits" count of a search envelope.
func decodeTotalHits(resp *Response) (uint64, error) {
	if resp == nil {
		return 0, nil
	}
	var result searchResult
	if err := resp.Decode(&result); err != nil {
		return 0, err
	}
	return result.TotalHits, nil
}

// decodeList reads a plain JSON array of objects.
func decodeList(resp *Response) ([]*Object, error) {
	var objects []*Object
	if err := resp.Decode(&objects); err != nil {
		return nil, err
	}
	return compact(objects), nil
}

func decodeObject(resp *Response) (*Object, error) {
	if resp == nil {
		return nil, nil
	}
	obj := &Object{}
	if err := resp.Decode(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeMap(resp *Response) (map[string]any, error) {
	result := map[string]any{}
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	return result, nil
}

func compact(objects []*Object) []*Object {
	out := make([]*Object, 0, len(objects))
	for _, o := range objects {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

// Create persists a new object. Objects without an id or type are posted to
// the type resource and the server assigns the id. Otherwise the object is
// put at its URI, overwriting any existing object with the same id.
func (c *Client) Create(ctx context.Context, obj *Object) (*Object, error) {
	if obj == nil {
		return nil, nil
	}
	var (
		resp *Response
		err  error
	)
	if obj.ID == "" || obj.Type == "" {
		resp, err = c.InvokePost(ctx, signer.EncodeURIComponent(obj.effectiveType()), obj)
	} else {
		resp, err = c.InvokePut(ctx, obj.ObjectURI(), obj)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create object: %w", err)
	}
	return decodeObject(resp)
}

// Read fetches an object by id. With a blank type the object is looked up by
// id alone. A missing object yields nil.
func (c *Client) Read(ctx context.Context, typ, id string) (*Object, error) {
	if id == "" {
		return nil, nil
	}
	path := "_id/" + signer.EncodeURIComponent(id)
	if typ != "" {
		path = signer.EncodeURIComponent(typ) + "/" + signer.EncodeURIComponent(id)
	}
	resp, err := c.InvokeGet(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", id, err)
	}
	return decodeObject(resp)
}

// Update patches an existing object with the fields of obj.
func (c *Client) Update(ctx context.Context, obj *Object) (*Object, error) {
	if obj == nil {
		return nil, nil
	}
	resp, err := c.InvokePatch(ctx, obj.ObjectURI(), obj)
	if err != nil {
		return nil, fmt.Errorf("failed to update object %s: %w", obj.ID, err)
	}
	return decodeObject(resp)
}

// Delete removes an object.
func (c *Client) Delete(ctx context.Context, obj *Object) error {
	if obj == nil {
		return nil
	}
	if _, err := c.InvokeDelete(ctx, obj.ObjectURI(), nil); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", obj.ID, err)
	}
	return nil
}

// CreateAll saves multiple objects in one request.
func (c *Client) CreateAll(ctx context.Context, objects []*Object) ([]*Object, error) {
	if len(objects) == 0 {
		return []*Object{}, nil
	}
	resp, err := c.InvokePost(ctx, "_batch", compact(objects))
	if err != nil {
		return nil, fmt.Errorf("failed to create %d objects: %w", len(objects), err)
	}
	return decodeList(resp)
}

// ReadAll fetches multiple objects by id.
func (c *Client) ReadAll(ctx context.Context, ids []string) ([]*Object, error) {
	if len(ids) == 0 {
		return []*Object{}, nil
	}
	resp, err := c.InvokeGet(ctx, "_batch", url.Values{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("failed to read %d objects: %w", len(ids), err)
	}
	return decodeList(resp)
}

// UpdateAll patches multiple objects in one request.
func (c *Client) UpdateAll(ctx context.Context, objects []*Object) ([]*Object, error) {
	if len(objects) == 0 {
		return []*Object{}, nil
	}
	resp, err := c.InvokePatch(ctx, "_batch", compact(objects))
	if err != nil {
		return nil, fmt.Errorf("failed to update %d objects: %w", len(objects), err)
	}
	return decodeList(resp)
}

// DeleteAll removes multiple objects by id.
func (c *Client) DeleteAll(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := c.InvokeDelete(ctx, "_batch", url.Values{"ids": ids}); err != nil {
		return fmt.Errorf("failed to delete %d objects: %w", len(ids), err)
	}
	return nil
}

// List returns one page of objects of the given type. The pager, if any,
// receives the total number of objects.
func (c *Client) List(ctx context.Context, typ string, pager *Pager) ([]*Object, error) {
	if typ == "" {
		return []*Object{}, nil
	}
	resp, err := c.InvokeGet(ctx, signer.EncodeURIComponent(typ), pager.Params())
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", typ, err)
	}
	return decodeItems(resp, pager)
}
