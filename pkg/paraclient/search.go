package paraclient

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/erudika/para-client-go/pkg/signer"
)

// Search query types understood by the server.
const (
	queryDefault  = "default"
	queryID       = "id"
	queryIDs      = "ids"
	queryNearby   = "nearby"
	queryPrefix   = "prefix"
	queryNested   = "nested"
	querySimilar  = "similar"
	queryTagged   = "tagged"
	queryIn       = "in"
	queryTerms    = "terms"
	queryWildcard = "wildcard"
	queryCount    = "count"
)

// find runs a search of the given query type. The type parameter, when set,
// scopes the search to objects of that type.
func (c *Client) find(ctx context.Context, queryType string, params url.Values) (*Response, error) {
	if len(params) == 0 {
		return nil, nil
	}
	if queryType == "" {
		queryType = queryDefault
	}
	path := "search/" + queryType
	if typ := params.Get("type"); typ != "" {
		path = signer.EncodeURIComponent(typ) + "/" + path
	}
	resp, err := c.InvokeGet(ctx, path, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", queryType, err)
	}
	return resp, nil
}

func (c *Client) findItems(ctx context.Context, queryType string, params url.Values, pager *Pager) ([]*Object, error) {
	resp, err := c.find(ctx, queryType, params)
	if err != nil {
		return nil, err
	}
	return decodeItems(resp, pager)
}

// termsParam converts a field/value map into sorted "field:value" strings.
func termsParam(terms map[string]any) []string {
	list := make([]string, 0, len(terms))
	for k, v := range terms {
		if v == nil {
			continue
		}
		list = append(list, k+":"+fmt.Sprint(v))
	}
	sort.Strings(list)
	return list
}

// FindByID looks up a single object by id through the search index.
func (c *Client) FindByID(ctx context.Context, id string) (*Object, error) {
	objects, err := c.findItems(ctx, queryID, url.Values{"id": {id}}, nil)
	if err != nil || len(objects) == 0 {
		return nil, err
	}
	return objects[0], nil
}

// FindByIDs looks up multiple objects by id through the search index.
func (c *Client) FindByIDs(ctx context.Context, ids []string) ([]*Object, error) {
	return c.findItems(ctx, queryIDs, url.Values{"ids": ids}, nil)
}

// FindNearby searches for objects of a type within radius km of a point.
func (c *Client) FindNearby(ctx context.Context, typ, query string, radius int, lat, lng float64, pager *Pager) ([]*Object, error) {
	params := pager.Params()
	params.Set("latlng", strconv.FormatFloat(lat, 'f', -1, 64)+","+strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("radius", strconv.Itoa(radius))
	params.Set("q", query)
	params.Set("type", typ)
	return c.findItems(ctx, queryNearby, params, pager)
}

// FindPrefix searches for objects whose field value starts with prefix.
func (c *Client) FindPrefix(ctx context.Context, typ, field, prefix string, pager *Pager) ([]*Object, error) {
	params := pager.Params()
	params.Set("field", field)
	params.Set("prefix", prefix)
	params.Set("type", typ)
	return c.findItems(ctx, queryPrefix, params, pager)
}

// FindQuery runs a simple query string search.
func (c *Client) FindQuery(ctx context.Context, typ, query string, pager *Pager) ([]*Object, error) {
	params := pager.Params()
	params.Set("q", query)
	params.Set("type", typ)
	return c.findItems(ctx, "", params, pager)
}

// FindNestedQuery searches within a nested field. The objects of the given
// type must contain a nested field "nstd".
func (c *Client) FindNestedQuery(ctx context.Context, typ, field, query string, pager *Pager) ([]*Object, error) {
	params := pager.Params()
	params.Set("q", query)
	params.Set("field", field)
	params.Set("type", typ)
	return c.findItems(ctx, queryNested, params, pager)
}

// FindSimilar runs a "more like this" query over fields, excluding the
// object with id filterKey.
func (c *Client) FindSimilar(ctx context.Context, typ, filterKey string, fields []string, likeText string, pager *Pager) ([]*Object, error) {
	params := pager.Params()
	if len(fields) > 0 {
		params["fields"] = fields
	}
	params.Set("filterid", filterKey)
	params.Set("like", likeText)
	params.Set("type", typ)
	return c.findItems(ctx, querySimilar, params, pager)
}

// FindTagged searches for objects tagged with all of the given tags.
func (c *Client) FindTagged(ctx context.Context, typ string, tags []string, pager *Pager) ([]*Object, error) {
	params := pager.Params()
	if len(tags) > 0 {
		params["tags"] = tags
	}
	params.Set("type", typ)
	return c.findItems(ctx, queryTagged, params, pager)
}

// FindTags searches for tag objects starting with keyword. A blank keyword
// matches all tags.
func (c *Client) FindTags(ctx context.Context, keyword string, pager *Pager) ([]*Object, error) {
	wildcard := "*"
	if keyword != "" {
		wildcard = keyword + "*"
	}
	return c.FindWildcard(ctx, "tag", "tag", wildcard, pager)
}

// FindTermInList searches for objects whose field value is one of terms.
func (c *Client) FindTermInList(ctx context.Context, typ, field string, terms []string, pager *Pager) ([]*Object, error) {
	params := pager.Params()
	params.Set("field", field)
	if len(terms) > 0 {
		params["terms"] = terms
	}
	params.Set("type", typ)
	return c.findItems(ctx, queryIn, params, pager)
}

// FindTerms searches for objects with fields matching the given values. With
// matchAll every term must match, otherwise any of them.
func (c *Client) FindTerms(ctx context.Context, typ string, terms map[string]any, matchAll bool, pager *Pager) ([]*Object, error) {
	if len(terms) == 0 {
		return []*Object{}, nil
	}
	params := pager.Params()
	params.Set("matchall", strconv.FormatBool(matchAll))
	params["terms"] = termsParam(terms)
	params.Set("type", typ)
	return c.findItems(ctx, queryTerms, params, pager)
}

// FindWildcard searches for objects whose field matches a wildcard query such as "cat*".
func (c *Client) FindWildcard(ctx context.Context, typ, field, wildcard string, pager *Pager) ([]*Object, error) {
	params := pager.Params()
	params.Set("field", field)
	params.Set("q", wildcard)
	params.Set("type", typ)
	return c.findItems(ctx, queryWildcard, params, pager)
}

// Count returns the number of indexed objects of a type.
func (c *Client) Count(ctx context.Context, typ string) (uint64, error) {
	resp, err := c.find(ctx, queryCount, url.Values{"type": {typ}})
	if err != nil {
		return 0, err
	}
	return decodeTotalHits(resp)
}

// CountTerms returns the number of indexed objects matching all the terms.
func (c *Client) CountTerms(ctx context.Context, typ string, terms map[string]any) (uint64, error) {
	if len(terms) == 0 {
		return 0, nil
	}
	params := url.Values{
		"terms": termsParam(terms),
		"count": {"true"},
	}
	params.Set("type", typ)
	resp, err := c.find(ctx, queryTerms, params)
	if err != nil {
		return 0, err
	}
	return decodeTotalHits(resp)
}
