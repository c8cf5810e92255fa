package jsonapi

import (
	"net/url"
	"strconv"
)

// MaxPageSize caps the page size a client can ask for.
const MaxPageSize = 100

// Pagination describes one page of an in-memory listing.
type Pagination struct {
	Total   int64
	Page    int // 1-based
	PerPage int
	BaseURL string // request URL the page links are derived from
}

var pageKeys = []string{"page[number]", "page[size]", "page", "per_page", "limit"}

// Paginated reports whether the query asks for a page at all. Listings
// without page parameters are returned whole.
func Paginated(query url.Values) bool {
	for _, k := range pageKeys {
		if query.Has(k) {
			return true
		}
	}
	return false
}

// NewPagination clamps page to 1 and defaults perPage to 20.
func NewPagination(total int64, page, perPage int, baseURL string) *Pagination {
	return &Pagination{
		Total:   total,
		Page:    max(page, 1),
		PerPage: firstPositive(perPage, 20),
		BaseURL: baseURL,
	}
}

// TotalPages is at least 1, even for an empty listing.
func (p *Pagination) TotalPages() int {
	pages := int((p.Total + int64(p.PerPage) - 1) / int64(p.PerPage))
	return max(pages, 1)
}

func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Page returns the items of the current page. Pages past the end are empty;
// a nil p returns every item.
func Page[T any](items []T, p *Pagination) []T {
	if p == nil {
		return items
	}
	lo := min(p.Offset(), len(items))
	hi := min(lo+p.PerPage, len(items))
	return items[lo:hi]
}

// Links returns self, first and last links, plus prev and next where they
// exist. Without a base URL every link is empty.
func (p *Pagination) Links() *Links {
	last := p.TotalPages()
	links := &Links{
		Self:  p.url(p.Page),
		First: p.url(1),
		Last:  p.url(last),
	}
	if p.Page > 1 {
		links.Prev = p.url(p.Page - 1)
	}
	if p.Page < last {
		links.Next = p.url(p.Page + 1)
	}
	return links
}

func (p *Pagination) url(page int) string {
	if p.BaseURL == "" {
		return ""
	}
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return p.BaseURL
	}
	q := u.Query()
	q.Set("page[number]", strconv.Itoa(page))
	q.Set("page[size]", strconv.Itoa(p.PerPage))
	u.RawQuery = q.Encode()
	return u.String()
}

func (p *Pagination) Meta() Meta {
	return Meta{
		"total":    p.Total,
		"page":     p.Page,
		"per_page": p.PerPage,
		"pages":    p.TotalPages(),
	}
}

// ParsePaginationParams extracts the 1-based page and page size from a
// query. page[number] and page[size] win over page, per_page and limit.
// Invalid values fall back to the defaults and the size is capped at
// MaxPageSize.
func ParsePaginationParams(query url.Values, defaultPerPage int) (page, perPage int) {
	page = firstPositive(positive(query, "page[number]"), positive(query, "page"), 1)
	perPage = firstPositive(positive(query, "page[size]"), positive(query, "per_page"), positive(query, "limit"), defaultPerPage)
	return page, min(perPage, MaxPageSize)
}

// positive returns the query value of key when it is a positive integer,
// else 0.
func positive(query url.Values, key string) int {
	n, err := strconv.Atoi(query.Get(key))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
