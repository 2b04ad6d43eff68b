package slice

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Pagination defaults.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Query is a filter set plus a page window.
type Query struct {
	Filters  map[string]string
	Page     int
	PageSize int
}

// ParseQuery reads page, page_size, and the allowed filter names from v.
// Unknown parameters are ignored; empty filters are dropped.
func ParseQuery(v url.Values, allowed ...string) Query {
	q := Query{Filters: map[string]string{}}
	for _, name := range allowed {
		if s := strings.TrimSpace(v.Get(name)); s != "" {
			q.Filters[name] = s
		}
	}
	q.Page, _ = strconv.Atoi(v.Get("page"))
	q.PageSize, _ = strconv.Atoi(v.Get("page_size"))
	return q.Normalize()
}

// Normalize applies defaults and clamps the page size.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	switch {
	case q.PageSize < 1:
		q.PageSize = DefaultPageSize
	case q.PageSize > MaxPageSize:
		q.PageSize = MaxPageSize
	}
	return q
}

// Key serialises the query deterministically: sorted filters, then page
// and page size.
func (q Query) Key() string {
	q = q.Normalize()
	names := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, k := range names {
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(q.Filters[k]))
		b.WriteByte('&')
	}
	b.WriteString("page=")
	b.WriteString(strconv.Itoa(q.Page))
	b.WriteString("&page_size=")
	b.WriteString(strconv.Itoa(q.PageSize))
	return b.String()
}

// Values renders the query for the upstream call.
func (q Query) Values() url.Values {
	q = q.Normalize()
	v := url.Values{}
	for k, val := range q.Filters {
		v.Set(k, val)
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("page_size", strconv.Itoa(q.PageSize))
	return v
}
