package store

import (
	"net/url"
	"strconv"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// ListParams are the common admin list controls. Search matches
// case-insensitively against a per-collection set of text fields; Filter is an
// exact-match value (role for users, status for posts).
type ListParams struct {
	Page   int
	Limit  int
	Search string
	Filter string
}

// ParseListParams reads page/limit/search plus the named filter key from query
// values. Missing or non-numeric page/limit fall back to 1 and 10; parsing
// never fails.
func ParseListParams(q url.Values, filterKey string) ListParams {
	p := ListParams{
		Page:   defaultPage,
		Limit:  defaultLimit,
		Search: q.Get("search"),
		Filter: q.Get(filterKey),
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		p.Limit = n
	}
	return p
}

// Skip is the number of documents to skip for the requested page.
func (p ListParams) Skip() int { return (p.Page - 1) * p.Limit }

// Pagination is the metadata envelope returned alongside every list.
type Pagination struct {
	Current int   `json:"current"`
	Pages   int   `json:"pages"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
}

// Paginate computes the envelope for a filtered total. Pages is
// ceil(total/limit).
func Paginate(total int64, p ListParams) Pagination {
	pages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Pagination{Current: p.Page, Pages: pages, Total: total, Limit: p.Limit}
}
