package slice

import (
	"sync"
	"time"
)

// gens stamps each session's last invalidation.  A fetch records the stamp
// before it starts and only caches its result if the stamp is unchanged,
// so a response read before a mutation is never stored after it.
type gens struct {
	mu  sync.Mutex
	seq uint64
	m   map[string]stamp
}

type stamp struct {
	n  uint64
	at time.Time
}

func (g *gens) get(sid string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m[sid].n
}

func (g *gens) bump(sid string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.m == nil {
		g.m = make(map[string]stamp)
	}
	g.seq++
	g.m[sid] = stamp{n: g.seq, at: time.Now()}
}

// prune forgets stamps set before cutoff.  A fetch outlives neither the
// upstream timeout nor the cache window, so old stamps can no longer match.
func (g *gens) prune(cutoff time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for sid, s := range g.m {
		if s.at.Before(cutoff) {
			delete(g.m, sid)
		}
	}
}
