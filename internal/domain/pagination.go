package domain

import "math"

// PageRequest is a validated 1-based page window.
type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest clamps page to >= 1 and limit to [1, maxLimit].
func NewPageRequest(page, limit, maxLimit int) PageRequest {
	if maxLimit < 1 {
		maxLimit = 1
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return PageRequest{Page: page, Limit: limit}
}

// Offset is the number of items preceding the page. It saturates at
// math.MaxInt so an oversized page lands past the end of any result set.
func (p PageRequest) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// Bounds returns the [lo, hi) slice indices of the page within total items.
func (p PageRequest) Bounds(total int) (int, int) {
	lo := p.Offset()
	if lo > total {
		lo = total
	}
	hi := lo + p.Limit
	if hi > total {
		hi = total
	}
	return lo, hi
}

// Pagination describes a page relative to the full result set.
type Pagination struct {
	Page        int
	Limit       int
	TotalItems  int
	TotalPages  int
	HasNextPage bool
	HasPrevPage bool
}

// NewPagination derives metadata from the pre-slice total.
func NewPagination(req PageRequest, total int) Pagination {
	pages := 0
	if total > 0 {
		pages = (total + req.Limit - 1) / req.Limit
	}
	return Pagination{
		Page:        req.Page,
		Limit:       req.Limit,
		TotalItems:  total,
		TotalPages:  pages,
		HasNextPage: req.Page < pages,
		HasPrevPage: req.Page > 1,
	}
}
