// Package listutil parses list-view query parameters and slices results into pages.
package listutil

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// DefaultPerPage is the default number of rows per page.
const DefaultPerPage = 14

// PerPageOptions are the allowed rows-per-page values.
var PerPageOptions = []int{7, 14, 28, 56}

// Sort directions.
const (
	Asc  = "asc"
	Desc = "desc"
)

// Params are the list parameters of a request: page, sort and free-text search.
type Params struct {
	Page    int // 1-indexed
	PerPage int
	Sort    string
	Dir     string
	Search  string
}

// Parse reads page, per_page, sort, dir and q from q.
// An unknown sort column falls back to defaultSort; dir defaults to defaultDir.
// POST: Page >= 1, PerPage is one of PerPageOptions, Dir is Asc or Desc
func Parse(q url.Values, sortColumns []string, defaultSort, defaultDir string) Params {
	p := Params{
		Page:    atoiMin(q.Get("page"), 1),
		PerPage: atoiMin(q.Get("per_page"), 0),
		Sort:    q.Get("sort"),
		Dir:     q.Get("dir"),
		Search:  strings.TrimSpace(q.Get("q")),
	}
	if !slices.Contains(PerPageOptions, p.PerPage) {
		p.PerPage = DefaultPerPage
	}
	if !slices.Contains(sortColumns, p.Sort) {
		p.Sort = defaultSort
	}
	if p.Dir != Asc && p.Dir != Desc {
		p.Dir = defaultDir
	}
	return p
}

// Query renders p back into URL values, overriding the page number.
func (p Params) Query(page int) url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("per_page", strconv.Itoa(p.PerPage))
	if p.Sort != "" {
		v.Set("sort", p.Sort)
		v.Set("dir", p.Dir)
	}
	if p.Search != "" {
		v.Set("q", p.Search)
	}
	return v
}

func atoiMin(s string, min int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < min {
		return min
	}
	return n
}

// PageInfo carries pagination metadata for rendering.
type PageInfo struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPageInfo computes pagination metadata, clamping page into range.
// POST: 1 <= Page <= TotalPages, TotalPages >= 1
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	pages := max(1, (total+perPage-1)/perPage)
	return PageInfo{
		Page:       min(max(page, 1), pages),
		PerPage:    perPage,
		Total:      total,
		TotalPages: pages,
	}
}

// Offset is the index of the first row on the page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// StartRow is the 1-indexed first row shown, 0 when empty.
func (p PageInfo) StartRow() int {
	if p.Total == 0 {
		return 0
	}
	return p.Offset() + 1
}

// EndRow is the 1-indexed last row shown.
func (p PageInfo) EndRow() int {
	return min(p.Offset()+p.PerPage, p.Total)
}

// HasPrev reports whether a previous page exists.
func (p PageInfo) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a following page exists.
func (p PageInfo) HasNext() bool { return p.Page < p.TotalPages }

// PageNumbers returns at most five page numbers around the current page.
func (p PageInfo) PageNumbers() []int {
	const window = 5
	start := max(1, p.Page-window/2)
	end := min(p.TotalPages, start+window-1)
	start = max(1, end-window+1)
	out := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	return out
}

// ShowPagination reports whether more than one page exists.
func (p PageInfo) ShowPagination() bool {
	return p.Total > p.PerPage
}

// Page returns the rows of items that fall on info's page.
func Page[T any](items []T, info PageInfo) []T {
	start := min(info.Offset(), len(items))
	end := min(start+info.PerPage, len(items))
	return items[start:end]
}
