package slice

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Cached is anything holding per-session cache entries.
type Cached interface {
	Name() string
	Invalidate(sid string) int
	Sweep() int
}

// Registry tracks every Cached so logout and context switches can drop a
// session's entries in one call.
type Registry struct {
	mu    sync.Mutex
	items []Cached
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry { return &Registry{} }

// Add registers c.
func (r *Registry) Add(c Cached) {
	r.mu.Lock()
	r.items = append(r.items, c)
	r.mu.Unlock()
}

func (r *Registry) snapshot() []Cached {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Cached(nil), r.items...)
}

// InvalidateSession drops sid's entries everywhere.
func (r *Registry) InvalidateSession(sid string) int {
	var n int
	for _, c := range r.snapshot() {
		n += c.Invalidate(sid)
	}
	return n
}

// SweepAll removes stale entries everywhere.
func (r *Registry) SweepAll() int {
	var n int
	for _, c := range r.snapshot() {
		n += c.Sweep()
	}
	return n
}

// Run sweeps every interval until stop is closed.
func (r *Registry) Run(interval time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if n := r.SweepAll(); n > 0 {
				zap.L().Debug("slice sweep", zap.Int("removed", n))
			}
		}
	}
}
