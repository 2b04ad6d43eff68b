// internal/session/session.go
//
// Browser session lifetime.
//
// Context
//   scs owns the session cookie: token generation, idle and absolute
//   timeouts, and the server-side session record (in memory or in the
//   shared MySQL database).  The scs record carries only an opaque context
//   id; the school/subject context, role, and upstream token live in
//   scope.Store under that id.
//
//      cookie ── scs token ──► scs record { sid, token_exp } ──► scope.Store[sid]
//
//   The middleware binds a scope.Handle for the id and puts it in the
//   request context, so every later handler and the outbound transport
//   read the same session.
//
//   Renew is called on login.  It replaces the scs token and moves the
//   scope state to a fresh id, so an id planted before login never carries
//   the authenticated state.
//
//------------------------------------------------------------------------------

package session

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/campus/internal/scope"
)

// DefaultCookieName is used when Options.CookieName is empty.
const DefaultCookieName = "campus_session"

// DefaultLifetime is the absolute session lifetime when Options.Lifetime
// is zero.
const DefaultLifetime = 14 * 24 * time.Hour

// keys in the scs record
const (
	keySID    = "sid"
	keyExpiry = "token_exp"
)

// Options configures a Manager.
type Options struct {
	CookieName string
	// Lifetime bounds a session regardless of activity.
	Lifetime time.Duration
	// IdleTimeout ends a session with no requests for this long; zero
	// disables it.
	IdleTimeout time.Duration
	// Secure marks cookies Secure; set when served over HTTPS.
	Secure bool
	// Store holds scs records.  Nil selects scs's in-memory store.
	Store scs.Store
}

// Manager wraps an scs.SessionManager.
type Manager struct {
	sm  *scs.SessionManager
	now func() time.Time
}

// NewManager returns a Manager configured from opts.
func NewManager(opts Options) *Manager {
	sm := scs.New()
	if opts.Store != nil {
		sm.Store = opts.Store
	}
	sm.Lifetime = opts.Lifetime
	if sm.Lifetime <= 0 {
		sm.Lifetime = DefaultLifetime
	}
	sm.IdleTimeout = opts.IdleTimeout

	sm.Cookie.Name = opts.CookieName
	if sm.Cookie.Name == "" {
		sm.Cookie.Name = DefaultCookieName
	}
	sm.Cookie.Path = "/"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = opts.Secure
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Persist = true

	sm.ErrorFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
		zap.L().Error("session", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	}
	return &Manager{sm: sm, now: time.Now}
}

// NewID returns a fresh context id.
func NewID() string { return uuid.NewString() }

// CookieName returns the session cookie's name.
func (m *Manager) CookieName() string { return m.sm.Cookie.Name }

// Middleware loads the scs session, binds a scope.Handle for its context
// id, and attaches the Handle to the request context.  A session without
// an id, or whose upstream token has expired, starts over with a new one.
func (m *Manager) Middleware(store scope.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.sm.LoadAndSave(m.bind(store, next))
	}
}

func (m *Manager) bind(store scope.Store, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sid := m.sm.GetString(ctx, keySID)
		if sid != "" && m.expired(ctx) {
			if err := store.Delete(ctx, sid); err != nil {
				zap.L().Warn("expired session delete", zap.Error(err))
			}
			if err := m.sm.Destroy(ctx); err != nil {
				m.sm.ErrorFunc(w, r, err)
				return
			}
			sid = ""
		}
		if sid == "" {
			sid = NewID()
			m.sm.Put(ctx, keySID, sid)
		}

		h, err := scope.NewHandle(ctx, store, sid)
		if err != nil {
			zap.L().Error("session load", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r.WithContext(scope.WithHandle(ctx, h)))
	})
}

func (m *Manager) expired(ctx context.Context) bool {
	exp := m.sm.GetInt64(ctx, keyExpiry)
	return exp != 0 && m.now().Unix() >= exp
}

// Renew issues a new session token and moves h's state to a new context
// id.  The old token and id stop working.
func (m *Manager) Renew(ctx context.Context, h *scope.Handle) error {
	if err := m.sm.RenewToken(ctx); err != nil {
		return err
	}
	sid := NewID()
	if err := h.Rotate(ctx, sid); err != nil {
		return err
	}
	m.sm.Put(ctx, keySID, sid)
	return nil
}

// SetExpiry ends the session at t, e.g. the upstream token's expiry.  The
// zero time leaves only the configured timeouts.
func (m *Manager) SetExpiry(ctx context.Context, t time.Time) {
	if t.IsZero() {
		m.sm.Remove(ctx, keyExpiry)
		return
	}
	m.sm.Put(ctx, keyExpiry, t.Unix())
}

// Destroy deletes the scs record and expires the cookie.
func (m *Manager) Destroy(ctx context.Context) error {
	return m.sm.Destroy(ctx)
}
