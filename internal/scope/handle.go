// internal/scope/handle.go
//
// Per-request view of one session's context.
//
// Context
// -------
// Handlers and the outbound transport never touch the Store directly.  The
// session middleware builds a *Handle for the request's session id, loads
// the State once, and stores the Handle in the request context.  Writes go
// through to the Store and update the Handle's cached State, so a later read
// in the same request observes them.
package scope

import (
	"context"
	"sync"

	"github.com/yanizio/campus/internal/account"
)

// Handle binds a Store to one session id.
type Handle struct {
	store Store
	sid   string

	mu    sync.RWMutex
	state State
}

// NewHandle loads sid's State and returns a bound Handle.
func NewHandle(ctx context.Context, store Store, sid string) (*Handle, error) {
	st, err := store.Load(ctx, sid)
	if err != nil {
		return nil, err
	}
	return &Handle{store: store, sid: sid, state: st}, nil
}

// SessionID returns the bound session id.
func (h *Handle) SessionID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sid
}

// Rotate moves the session's State to sid and rebinds the Handle to it.
// The old id no longer reads anything.
func (h *Handle) Rotate(ctx context.Context, sid string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.store.Rename(ctx, h.sid, sid); err != nil {
		return err
	}
	h.sid = sid
	return nil
}

// Snapshot returns a copy of the cached State.
func (h *Handle) Snapshot() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	st := h.state
	if st.Selection != nil {
		sel := *st.Selection
		st.Selection = &sel
	}
	return st
}

// GetContext returns the active Selection, if any.
func (h *Handle) GetContext() (Selection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.state.Selection == nil {
		return Selection{}, false
	}
	return *h.state.Selection, true
}

// SetContext overwrites the Selection.
func (h *Handle) SetContext(ctx context.Context, sel Selection) error {
	if err := h.store.PutSelection(ctx, h.SessionID(), sel); err != nil {
		return err
	}
	h.mu.Lock()
	h.state.Selection = &sel
	h.mu.Unlock()
	return nil
}

// ClearContext removes the Selection.
func (h *Handle) ClearContext(ctx context.Context) error {
	if err := h.store.ClearSelection(ctx, h.SessionID()); err != nil {
		return err
	}
	h.mu.Lock()
	h.state.Selection = nil
	h.mu.Unlock()
	return nil
}

// SetAuth records role and token after login.
func (h *Handle) SetAuth(ctx context.Context, role account.Role, token string) error {
	if err := h.store.PutAuth(ctx, h.SessionID(), role, token); err != nil {
		return err
	}
	h.mu.Lock()
	h.state.Role = role
	h.state.Token = token
	h.mu.Unlock()
	return nil
}

// Destroy deletes everything stored for the session.
func (h *Handle) Destroy(ctx context.Context) error {
	if err := h.store.Delete(ctx, h.SessionID()); err != nil {
		return err
	}
	h.mu.Lock()
	h.state = State{}
	h.mu.Unlock()
	return nil
}

// Role returns the stored role marker.
func (h *Handle) Role() account.Role {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.Role
}

// Token returns the stored upstream bearer token.
func (h *Handle) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.Token
}

//
// context plumbing
//

type handleKey struct{}

// WithHandle returns ctx carrying h.
func WithHandle(ctx context.Context, h *Handle) context.Context {
	return context.WithValue(ctx, handleKey{}, h)
}

// FromContext returns the Handle stored by WithHandle, or nil.
func FromContext(ctx context.Context) *Handle {
	h, _ := ctx.Value(handleKey{}).(*Handle)
	return h
}
