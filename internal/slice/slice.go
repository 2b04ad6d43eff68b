// internal/slice/slice.go
//
// Cached, paginated views over upstream collections.
//
// Context
// -------
// Each feature area (exercises, videos, tags, ...) owns one Slice.  A read
// is keyed by the session, the active subject, and the query, so two users
// never share entries and a context switch never serves data for the old
// subject.  Entries are valid for the cache window (5 minutes by default);
// a stale entry triggers a fresh upstream call.
//
// Workflow
// --------
//
//	List(ctx, q)
//	  ├── cache hit (fresh)     → return
//	  └── miss / stale          → singleflight(key) → upstream GET → Set
//
// Concurrent identical misses share one upstream call.  The shared call is
// detached from the first caller's cancellation, so one client hanging up
// does not fail the others.  Mutations call Invalidate so the next read
// goes upstream.
package slice

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yanizio/campus/internal/cache"
	"github.com/yanizio/campus/internal/metrics"
	"github.com/yanizio/campus/internal/scope"
)

// Fetcher performs an authenticated GET and decodes the JSON response.
// *upstream.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, path string, q url.Values, out any) error
}

// Page is one page of a collection.
type Page[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

type key struct {
	sid     string
	subject string
	query   string
}

func (k key) String() string { return k.sid + "|" + k.subject + "|" + k.query }

// Slice is a cached, paginated upstream collection.
type Slice[T any] struct {
	name  string
	path  string
	fetch Fetcher
	cache *cache.TTL[key, Page[T]]
	sfg   singleflight.Group
	gen   gens
}

// New returns a Slice named name (used in metrics) reading path.
func New[T any](name, path string, f Fetcher, ttl time.Duration) *Slice[T] {
	return &Slice[T]{
		name:  name,
		path:  path,
		fetch: f,
		cache: cache.NewTTL[key, Page[T]](ttl, 0),
	}
}

// Name returns the slice name.
func (s *Slice[T]) Name() string { return s.name }

// List returns a page for q, from cache when fresh.
func (s *Slice[T]) List(ctx context.Context, q Query) (Page[T], error) {
	h := scope.FromContext(ctx)
	if h == nil {
		return Page[T]{}, scope.ErrNoSession
	}
	q = q.Normalize()
	k := key{sid: h.SessionID(), subject: h.Snapshot().SubjectID(), query: q.Key()}

	if p, ok := s.cache.Get(k); ok {
		metrics.SliceCacheHits.WithLabelValues(s.name).Inc()
		return p, nil
	}
	metrics.SliceCacheMisses.WithLabelValues(s.name).Inc()

	g := s.gen.get(k.sid)
	v, err, _ := s.sfg.Do(flightKey(k, g), func() (any, error) {
		var p Page[T]
		if err := s.fetch.Get(context.WithoutCancel(ctx), s.path, q.Values(), &p); err != nil {
			return nil, err
		}
		if p.Items == nil {
			p.Items = []T{}
		}
		if p.Page == 0 {
			p.Page = q.Page
		}
		if p.PageSize == 0 {
			p.PageSize = q.PageSize
		}
		if s.gen.get(k.sid) == g {
			s.cache.Set(k, p)
		}
		return p, nil
	})
	if err != nil {
		return Page[T]{}, err
	}
	return v.(Page[T]), nil
}

// Invalidate drops every entry of session sid and reports how many.  A
// fetch already in flight for sid is answered but not cached.
func (s *Slice[T]) Invalidate(sid string) int {
	s.gen.bump(sid)
	return s.cache.DeleteFunc(func(k key) bool { return k.sid == sid })
}

// Sweep removes stale entries.
func (s *Slice[T]) Sweep() int {
	s.gen.prune(time.Now().Add(-s.cache.TTL()))
	return s.cache.Sweep()
}

// flightKey separates fetches started before and after an invalidation.
func flightKey(k key, gen uint64) string {
	return k.String() + "|" + strconv.FormatUint(gen, 10)
}
