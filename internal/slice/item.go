package slice

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yanizio/campus/internal/cache"
	"github.com/yanizio/campus/internal/metrics"
	"github.com/yanizio/campus/internal/scope"
)

// Item is the single-object counterpart of Slice, for endpoints such as a
// credit balance that are not paginated.
type Item[T any] struct {
	name  string
	path  string
	fetch Fetcher
	cache *cache.TTL[key, T]
	sfg   singleflight.Group
	gen   gens
}

// NewItem returns an Item named name reading path.
func NewItem[T any](name, path string, f Fetcher, ttl time.Duration) *Item[T] {
	return &Item[T]{
		name:  name,
		path:  path,
		fetch: f,
		cache: cache.NewTTL[key, T](ttl, 0),
	}
}

func (it *Item[T]) Name() string { return it.name }

// Get returns the object, from cache when fresh.
func (it *Item[T]) Get(ctx context.Context) (T, error) {
	var zero T
	h := scope.FromContext(ctx)
	if h == nil {
		return zero, scope.ErrNoSession
	}
	k := key{sid: h.SessionID(), subject: h.Snapshot().SubjectID()}

	if v, ok := it.cache.Get(k); ok {
		metrics.SliceCacheHits.WithLabelValues(it.name).Inc()
		return v, nil
	}
	metrics.SliceCacheMisses.WithLabelValues(it.name).Inc()

	g := it.gen.get(k.sid)
	v, err, _ := it.sfg.Do(flightKey(k, g), func() (any, error) {
		var out T
		if err := it.fetch.Get(context.WithoutCancel(ctx), it.path, nil, &out); err != nil {
			return nil, err
		}
		if it.gen.get(k.sid) == g {
			it.cache.Set(k, out)
		}
		return out, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

func (it *Item[T]) Invalidate(sid string) int {
	it.gen.bump(sid)
	return it.cache.DeleteFunc(func(k key) bool { return k.sid == sid })
}

func (it *Item[T]) Sweep() int {
	it.gen.prune(time.Now().Add(-it.cache.TTL()))
	return it.cache.Sweep()
}
