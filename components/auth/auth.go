// components/auth/auth.go
//
// Authentication component: login, session verification, and logout.
//
// Context
// -------
// Credentials are exchanged with the upstream API for a bearer token and a
// user record.  The token and role marker go into the session store; the
// resolver then decides whether a school/subject context is picked
// automatically, reused from before, or must be chosen on /select.
//
// A successful login renews the session: new cookie token, new context
// id, old state moved over and the old id dropped.
//
// The token's exp claim is read without verifying the signature.  It only
// bounds the session's lifetime; the backend remains the authority on
// validity.
//
//------------------------------------------------------------------------------

package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/yanizio/campus/internal/account"
	"github.com/yanizio/campus/internal/component"
	"github.com/yanizio/campus/internal/form"
	"github.com/yanizio/campus/internal/resolver"
	"github.com/yanizio/campus/internal/scope"
	"github.com/yanizio/campus/internal/upstream"
)

// SelectPath is where users who must pick a context are sent.
const SelectPath = "/select"

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component encapsulates the login flow.
type Component struct {
	d component.Deps
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "auth" }

// Init keeps the shared dependencies.
func (c *Component) Init(d component.Deps) error {
	if d.Config == nil || d.Upstream == nil || d.Sessions == nil {
		return errors.New("auth: config, upstream and sessions are required")
	}
	c.d = d
	return nil
}

// Routes builds the router.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", c.handleLogin)
	r.Get("/session", c.handleSession)
	r.Post("/logout", c.handleLogout)
	return r
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*──────────────────────────── Handlers ─────────────────────────────────────*/

type credentials struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  account.User `json:"user"`
}

func (c *Component) handleLogin(w http.ResponseWriter, r *http.Request) {
	h := scope.FromContext(r.Context())
	if h == nil {
		component.WriteError(w, scope.ErrNoSession)
		return
	}

	var cred credentials
	if isJSON(r) {
		if err := component.DecodeJSON(r, &cred); err != nil {
			component.BadRequest(w, "malformed login body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			component.BadRequest(w, "malformed login form")
			return
		}
		cred.Email = r.PostForm.Get("email")
		cred.Password = r.PostForm.Get("password")
	}
	if err := form.Validate(cred); err != nil {
		component.WriteError(w, err)
		return
	}

	var resp loginResponse
	if err := c.d.Upstream.DoPublic(r.Context(), http.MethodPost, upstream.LoginPath, cred, &resp); err != nil {
		component.WriteError(w, err)
		return
	}
	if resp.Token == "" {
		component.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": "login response carried no token"})
		return
	}

	prev := h.SessionID()
	if err := c.d.Sessions.Renew(r.Context(), h); err != nil {
		zap.L().Error("renew session", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	if c.d.Slices != nil {
		c.d.Slices.InvalidateSession(prev)
	}
	if err := h.SetAuth(r.Context(), resp.User.Role, resp.Token); err != nil {
		zap.L().Error("store auth", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	c.d.Sessions.SetExpiry(r.Context(), TokenExpiry(resp.Token))

	d, err := resolver.Resume(r.Context(), h, resp.User)
	if err != nil {
		zap.L().Error("resolve context", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	zap.L().Info("login",
		zap.String("user_id", resp.User.ID),
		zap.String("role", resp.User.Role.String()),
		zap.Stringer("decision", d.Kind))

	c.respond(w, r, resp.User, d)
}

// handleSession re-fetches the user with the stored token and re-runs
// the resolver, clearing a selection that no longer matches.
func (c *Component) handleSession(w http.ResponseWriter, r *http.Request) {
	h := scope.FromContext(r.Context())
	u, err := c.d.Upstream.Me(r.Context())
	if err != nil {
		if ue, ok := upstream.AsError(err); ok && ue.IsUnauthorized() && h != nil {
			c.end(r, h)
		}
		component.WriteError(w, err)
		return
	}
	d, err := resolver.Resume(r.Context(), h, u)
	if err != nil {
		component.WriteError(w, err)
		return
	}
	component.WriteJSON(w, http.StatusOK, sessionView{User: u, Decision: d})
}

func (c *Component) handleLogout(w http.ResponseWriter, r *http.Request) {
	if h := scope.FromContext(r.Context()); h != nil {
		c.end(r, h)
	}
	w.WriteHeader(http.StatusNoContent)
}

// end destroys the session's server-side state and its cookie.
func (c *Component) end(r *http.Request, h *scope.Handle) {
	sid := h.SessionID()
	if err := h.Destroy(r.Context()); err != nil {
		zap.L().Warn("destroy session", zap.Error(err))
	}
	if c.d.Slices != nil {
		c.d.Slices.InvalidateSession(sid)
	}
	if err := c.d.Sessions.Destroy(r.Context()); err != nil {
		zap.L().Warn("destroy session cookie", zap.Error(err))
	}
}

type sessionView struct {
	User account.User `json:"user"`
	resolver.Decision
}

// respond answers JSON callers with the decision and redirects browsers.
func (c *Component) respond(w http.ResponseWriter, r *http.Request, u account.User, d resolver.Decision) {
	if isJSON(r) || strings.Contains(r.Header.Get("Accept"), "application/json") {
		component.WriteJSON(w, http.StatusOK, sessionView{User: u, Decision: d})
		return
	}
	target := c.d.Config.App.LandingPath
	if d.Kind == resolver.NeedsSelection {
		target = SelectPath
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// TokenExpiry returns the exp claim of a JWT, or the zero time when the
// token is not a JWT or carries no expiry.
func TokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
