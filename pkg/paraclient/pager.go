package paraclient

import (
	"net/url"
	"strconv"
)

const (
	DefaultPageLimit = 30
	DefaultSortBy    = "timestamp"
)

// Pager limits the results of list and search queries and records the total
// number of results reported by the server.
type Pager struct {
	Page   uint64
	Count  uint64
	SortBy string
	Desc   bool
	Limit  uint64
	Name   string
	// LastKey is used for search-after style pagination.
	LastKey string
}

// NewPager returns a pager for the first page with the given limit.
func NewPager(limit uint64) *Pager {
	return NewPagerAt(1, limit)
}

// NewPagerAt returns a pager for the given page and limit.
func NewPagerAt(page, limit uint64) *Pager {
	return NewPagerSorted(page, DefaultSortBy, true, limit)
}

// NewPagerSorted returns a fully specified pager.
func NewPagerSorted(page uint64, sortBy string, desc bool, limit uint64) *Pager {
	return &Pager{
		Page:   page,
		SortBy: sortBy,
		Desc:   desc,
		Limit:  limit,
	}
}

// Params converts the pager into query parameters. A nil pager yields no parameters.
func (p *Pager) Params() url.Values {
	params := url.Values{}
	if p == nil {
		return params
	}
	params.Set("page", strconv.FormatUint(p.Page, 10))
	params.Set("desc", strconv.FormatBool(p.Desc))
	params.Set("limit", strconv.FormatUint(p.Limit, 10))
	if p.LastKey != "" {
		params.Set("lastKey", p.LastKey)
	}
	if p.SortBy != "" {
		params.Set("sort", p.SortBy)
	}
	return params
}
