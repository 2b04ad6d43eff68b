package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/campus/internal/account"
	"github.com/yanizio/campus/internal/scope"
)

// harness serves a handler behind the middleware and records the context
// id and state each request saw.
type harness struct {
	t     *testing.T
	m     *Manager
	store *scope.MemoryStore
	h     http.Handler
	sid   string
	state scope.State
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	hs := &harness{t: t, m: NewManager(Options{}), store: scope.NewMemoryStore(0)}
	t.Cleanup(hs.store.Close)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		sh := scope.FromContext(r.Context())
		require.NotNil(t, sh)
		hs.sid = sh.SessionID()
		hs.state = sh.Snapshot()
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		sh := scope.FromContext(r.Context())
		require.NoError(t, hs.m.Renew(r.Context(), sh))
		require.NoError(t, sh.SetAuth(r.Context(), account.RoleStudent, "tok"))
		hs.sid = sh.SessionID()
	})
	mux.HandleFunc("/expire", func(w http.ResponseWriter, r *http.Request) {
		hs.m.SetExpiry(r.Context(), time.Now().Add(-time.Second))
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, hs.m.Destroy(r.Context()))
	})
	hs.h = hs.m.Middleware(hs.store)(mux)
	return hs
}

// do serves path with c (when non-nil) and returns the session cookie set
// by the response, if any.
func (hs *harness) do(path string, c *http.Cookie) *http.Cookie {
	hs.t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if c != nil {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	hs.h.ServeHTTP(rec, req)
	for _, rc := range rec.Result().Cookies() {
		if rc.Name == hs.m.CookieName() {
			return rc
		}
	}
	return nil
}

func TestMiddleware_IssuesAndReusesSession(t *testing.T) {
	hs := newHarness(t)

	c := hs.do("/", nil)
	require.NotNil(t, c)
	assert.Equal(t, DefaultCookieName, c.Name)
	assert.True(t, c.HttpOnly)
	first := hs.sid
	require.NotEmpty(t, first)

	require.NoError(t, hs.store.PutSelection(context.Background(), first, scope.Selection{SchoolID: "S1", SubjectID: "M1"}))
	hs.do("/", c)
	assert.Equal(t, first, hs.sid)
	assert.Equal(t, "M1", hs.state.SubjectID())
}

func TestMiddleware_UnknownCookieStartsFresh(t *testing.T) {
	hs := newHarness(t)
	c := hs.do("/", &http.Cookie{Name: DefaultCookieName, Value: "planted-token"})
	require.NotNil(t, c)
	assert.NotEqual(t, "planted-token", c.Value)
	assert.Empty(t, hs.state.Token)
}

func TestRenew_RotatesTokenAndContextID(t *testing.T) {
	hs := newHarness(t)

	before := hs.do("/", nil)
	require.NotNil(t, before)
	oldSID := hs.sid

	after := hs.do("/login", before)
	require.NotNil(t, after, "login re-issues the cookie")
	assert.NotEqual(t, before.Value, after.Value)
	newSID := hs.sid
	assert.NotEqual(t, oldSID, newSID)

	// The pre-login cookie no longer reaches the authenticated state.
	hs.do("/", before)
	assert.NotEqual(t, newSID, hs.sid)
	assert.Empty(t, hs.state.Token)

	hs.do("/", after)
	assert.Equal(t, newSID, hs.sid)
	assert.Equal(t, "tok", hs.state.Token)

	old, err := hs.store.Load(context.Background(), oldSID)
	require.NoError(t, err)
	assert.Empty(t, old.Token)
}

func TestSetExpiry_EndsSession(t *testing.T) {
	hs := newHarness(t)

	c := hs.do("/login", nil)
	require.NotNil(t, c)
	authed := hs.sid
	if c2 := hs.do("/expire", c); c2 != nil {
		c = c2
	}

	hs.do("/", c)
	assert.NotEqual(t, authed, hs.sid)
	assert.Empty(t, hs.state.Token)

	st, err := hs.store.Load(context.Background(), authed)
	require.NoError(t, err)
	assert.Empty(t, st.Token, "expired session state is deleted")
}

func TestDestroy_ExpiresCookie(t *testing.T) {
	hs := newHarness(t)
	c := hs.do("/", nil)
	require.NotNil(t, c)

	gone := hs.do("/logout", c)
	require.NotNil(t, gone)
	assert.Empty(t, gone.Value)
	assert.True(t, gone.MaxAge < 0 || gone.Expires.Before(time.Now()))
}

func TestNewMySQLStore_CreatesTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS sessions")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s, err := NewMySQLStore(context.Background(), sqlx.NewDb(db, "mysql"))
	require.NoError(t, err)
	s.StopCleanup()
	assert.NoError(t, mock.ExpectationsWereMet())
}
