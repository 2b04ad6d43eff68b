// internal/scope/memory.go
//
// Process-local session store.
//
// Context
// -------
// MemoryStore keeps one entry per session id in a map guarded by an
// RWMutex.  Every write refreshes the entry's lastSeen stamp; a background
// loop drops sessions idle longer than idleTTL, mirroring how a browser tab's
// session storage disappears with the tab.  Reads count as activity.  Close
// stops the loop.
package scope

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/campus/internal/account"
	"github.com/yanizio/campus/internal/metrics"
)

// EvictInterval is how often the idle sweep runs.
const EvictInterval = time.Minute

type memEntry struct {
	state    State
	lastSeen time.Time
}

// MemoryStore is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	m       map[string]*memEntry
	idleTTL time.Duration
	now     func() time.Time

	stop chan struct{}
	once sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a store and starts the idle evictor when
// idleTTL > 0.
func NewMemoryStore(idleTTL time.Duration) *MemoryStore {
	s := &MemoryStore{
		m:       make(map[string]*memEntry),
		idleTTL: idleTTL,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if idleTTL > 0 {
		go s.evictLoop(EvictInterval)
	}
	return s
}

// Close stops the evictor.  Safe to call more than once.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) Load(_ context.Context, sid string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ent, ok := s.m[sid]
	if !ok {
		return State{}, nil
	}
	ent.lastSeen = s.now()
	st := ent.state
	if st.Selection != nil {
		sel := *st.Selection // callers never alias the stored record
		st.Selection = &sel
	}
	return st, nil
}

func (s *MemoryStore) PutSelection(_ context.Context, sid string, sel Selection) error {
	s.update(sid, func(st *State) { st.Selection = &sel })
	return nil
}

func (s *MemoryStore) ClearSelection(_ context.Context, sid string) error {
	s.update(sid, func(st *State) { st.Selection = nil })
	return nil
}

func (s *MemoryStore) PutAuth(_ context.Context, sid string, role account.Role, token string) error {
	s.update(sid, func(st *State) {
		st.Role = role
		st.Token = token
	})
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[sid]; ok {
		delete(s.m, sid)
		metrics.ActiveSessions.Dec()
	}
	return nil
}

func (s *MemoryStore) Rename(_ context.Context, from, to string) error {
	if from == to {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ent, ok := s.m[from]
	if !ok {
		return nil
	}
	delete(s.m, from)
	if _, taken := s.m[to]; taken {
		metrics.ActiveSessions.Dec()
	}
	ent.lastSeen = s.now()
	s.m[to] = ent
	return nil
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

func (s *MemoryStore) update(sid string, fn func(*State)) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	ent, ok := s.m[sid]
	if !ok {
		ent = &memEntry{}
		s.m[sid] = ent
		metrics.ActiveSessions.Inc()
	}
	fn(&ent.state)
	ent.state.UpdatedAt = now
	ent.lastSeen = now
}

//
// idle eviction
//

func (s *MemoryStore) evictLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			s.evictIdle()
		}
	}
}

// evictIdle drops sessions idle longer than idleTTL and returns the count.
func (s *MemoryStore) evictIdle() int {
	now := s.now()
	var n int

	s.mu.Lock()
	for sid, ent := range s.m {
		if idle := now.Sub(ent.lastSeen); idle > s.idleTTL {
			delete(s.m, sid)
			n++
			zap.L().Debug("session evicted",
				zap.String("sid", shortID(sid)),
				zap.Duration("idle", idle.Truncate(time.Second)))
		}
	}
	s.mu.Unlock()

	if n > 0 {
		metrics.ActiveSessions.Sub(float64(n))
		metrics.SessionEvictTotal.Add(float64(n))
	}
	return n
}

// shortID keeps session ids out of logs in full.
func shortID(sid string) string {
	if len(sid) > 8 {
		return sid[:8]
	}
	return sid
}
