// Package comptest wires a component against a fake upstream for tests.
package comptest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/campus/internal/account"
	"github.com/yanizio/campus/internal/component"
	"github.com/yanizio/campus/internal/config"
	"github.com/yanizio/campus/internal/form"
	"github.com/yanizio/campus/internal/scope"
	"github.com/yanizio/campus/internal/session"
	"github.com/yanizio/campus/internal/slice"
	"github.com/yanizio/campus/internal/upstream"
)

// Secret is the CSRF secret used by Env.
const Secret = "0123456789abcdef0123456789abcdef"

// Token is the bearer token Login stores.
const Token = "tok-123"

// Env is one wired test environment.
type Env struct {
	t        *testing.T
	Upstream *httptest.Server
	Store    *scope.MemoryStore
	Deps     component.Deps
	// SID follows the session's context id, including rotation on login.
	SID    string
	cookie *http.Cookie
}

// New starts a fake upstream served by api and builds Deps around it.
func New(t *testing.T, api http.Handler) *Env {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	store := scope.NewMemoryStore(time.Hour)
	t.Cleanup(store.Close)

	client, err := upstream.New(srv.URL, 5*time.Second, nil)
	if err != nil {
		t.Fatal(err)
	}
	sm := session.NewManager(session.Options{})
	csrf, err := form.NewCSRF([]byte(Secret))
	if err != nil {
		t.Fatal(err)
	}

	e := &Env{
		t:        t,
		Upstream: srv,
		Store:    store,
		Deps: component.Deps{
			Config: &config.Config{
				App:   config.App{LandingPath: "/dashboard"},
				Cache: config.Cache{TTL: 5 * time.Minute},
			},
			Upstream: client,
			Sessions: sm,
			CSRF:     csrf,
			Slices:   slice.NewRegistry(),
		},
	}

	// Open a session so every request shares one cookie.
	boot := sm.Middleware(store)(e.track(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})))
	e.keepCookie(e.serve(boot, httptest.NewRequest(http.MethodGet, "/", nil)))
	if e.cookie == nil || e.SID == "" {
		t.Fatal("comptest: no session cookie issued")
	}
	return e
}

// Login stores role and Token for the session, plus sel when non-nil.
func (e *Env) Login(role account.Role, sel *scope.Selection) {
	e.t.Helper()
	ctx := context.Background()
	if err := e.Store.PutAuth(ctx, e.SID, role, Token); err != nil {
		e.t.Fatal(err)
	}
	if sel != nil {
		if err := e.Store.PutSelection(ctx, e.SID, *sel); err != nil {
			e.t.Fatal(err)
		}
	}
}

// State returns the stored state of the session.
func (e *Env) State() scope.State {
	e.t.Helper()
	st, err := e.Store.Load(context.Background(), e.SID)
	if err != nil {
		e.t.Fatal(err)
	}
	return st
}

// Handler initialises c and serves it behind the session middleware.
func (e *Env) Handler(c component.Component) http.Handler {
	e.t.Helper()
	if err := component.InitAll([]component.Component{c}, e.Deps); err != nil {
		e.t.Fatal(err)
	}
	r := chi.NewRouter()
	r.Use(e.Deps.Sessions.Middleware(e.Store), e.track)
	r.Mount("/", component.Dispatch([]component.Component{c}))
	return r
}

// Do serves req through h carrying the session cookie, and keeps any
// replacement cookie the response sets.
func (e *Env) Do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	rec := e.serve(h, req)
	e.keepCookie(rec)
	return rec
}

// Cookie returns the session cookie the next request will carry.
func (e *Env) Cookie() *http.Cookie { return e.cookie }

func (e *Env) serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func (e *Env) keepCookie(rec *httptest.ResponseRecorder) {
	for _, c := range rec.Result().Cookies() {
		if c.Name != e.Deps.Sessions.CookieName() {
			continue
		}
		if c.MaxAge < 0 || c.Value == "" {
			e.cookie = nil
		} else {
			e.cookie = c
		}
	}
}

// track records the context id after the handler ran, so rotation is seen.
func (e *Env) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if h := scope.FromContext(r.Context()); h != nil {
			e.SID = h.SessionID()
		}
	})
}
