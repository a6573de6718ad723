package common

import (
	"net/http"
	"strconv"
)

// MaxPerPage caps list page sizes.
const MaxPerPage = 100

// PageRequest is a validated page selection from list query parameters.
type PageRequest struct {
	Page    int
	PerPage int
}

// Offset is the number of rows to skip for this page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// ParsePagination reads page and per_page (or its alias limit) from the query.
// Missing or non-positive values fall back to page 1 and defaultPerPage.
func ParsePagination(r *http.Request, defaultPerPage int) PageRequest {
	q := r.URL.Query()
	req := PageRequest{Page: 1, PerPage: defaultPerPage}
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		req.Page = p
	}
	size := q.Get("per_page")
	if size == "" {
		size = q.Get("limit")
	}
	if n, err := strconv.Atoi(size); err == nil && n > 0 {
		req.PerPage = n
	}
	return req.Clamp()
}

// Clamp bounds the page size to [1, MaxPerPage] and the page to >= 1.
func (p PageRequest) Clamp() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = 1
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// NewPagination builds response metadata for a page of a list with total rows.
func NewPagination(req PageRequest, total int64) Pagination {
	pages := 0
	if req.PerPage > 0 {
		pages = int((total + int64(req.PerPage) - 1) / int64(req.PerPage))
	}
	return Pagination{Page: req.Page, PerPage: req.PerPage, TotalItems: int(total), TotalPages: pages}
}
