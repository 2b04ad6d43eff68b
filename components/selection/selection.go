// components/selection/selection.go
//
// School/subject selection.
//
// Context
// -------
// Users who belong to more than one (school, subject) pair pick one here,
// either through the server-rendered /select form or the JSON API under
// /api/context.  Every choice is checked against the user's memberships as
// fetched from the upstream API, persisted through scope.Handle, and drops
// the session's cached slices, which were keyed by the previous subject.
//
//------------------------------------------------------------------------------

package selection

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/campus/internal/account"
	"github.com/yanizio/campus/internal/acl"
	"github.com/yanizio/campus/internal/component"
	"github.com/yanizio/campus/internal/form"
	"github.com/yanizio/campus/internal/scope"
)

//go:embed templates/*.html
var templates embed.FS

var page = template.Must(template.ParseFS(templates, "templates/select.html"))

// ErrUnknownPair is returned when the chosen pair is not one of the user's.
var ErrUnknownPair = errors.New("selection: school/subject not available to this user")

var _ component.Component = (*Component)(nil)

// Component serves the selection page and API.
type Component struct {
	d component.Deps
}

func init() { component.Register(&Component{}) }

// Name returns the canonical component key.
func (c *Component) Name() string { return "selection" }

// Init keeps the shared dependencies.
func (c *Component) Init(d component.Deps) error {
	if d.Config == nil || d.Upstream == nil || d.CSRF == nil {
		return errors.New("selection: config, upstream and csrf are required")
	}
	c.d = d
	return nil
}

// Routes builds the router.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(acl.RequireSession)
		r.Get("/select", c.getPage)
		r.Post("/select", c.postPage)
		r.Route("/api/context", func(r chi.Router) {
			r.Get("/", c.getCurrent)
			r.Put("/", c.putCurrent)
			r.Delete("/", c.deleteCurrent)
			r.Get("/options", c.getOptions)
		})
	})
	return r
}

/*──────────────────────────── Page ─────────────────────────────────────────*/

type pairView struct {
	SchoolName  string
	SubjectName string
	Value       string
	Current     bool
}

type pageData struct {
	Pairs     []pairView
	CSRF      string
	CSRFField string
	Error     string
}

func (c *Component) getPage(w http.ResponseWriter, r *http.Request) {
	c.render(w, r, http.StatusOK, "")
}

func (c *Component) render(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h := scope.FromContext(r.Context())
	u, err := c.d.Upstream.Me(r.Context())
	if err != nil {
		component.WriteError(w, err)
		return
	}
	tok, err := c.d.CSRF.Generate(h.SessionID())
	if err != nil {
		zap.L().Error("csrf generate", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	cur, _ := h.GetContext()
	data := pageData{CSRF: tok, CSRFField: form.FieldName, Error: msg}
	for _, p := range u.Pairs() {
		data.Pairs = append(data.Pairs, pairView{
			SchoolName:  p.School.SchoolName,
			SubjectName: p.Subject.SubjectName,
			Value:       pairValue(p.School.SchoolID, p.Subject.SubjectID),
			Current:     cur.SchoolID == p.School.SchoolID && cur.SubjectID == p.Subject.SubjectID,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := page.Execute(w, data); err != nil {
		zap.L().Error("render select", zap.Error(err))
	}
}

func pairValue(schoolID, subjectID string) string {
	return url.Values{"school_id": {schoolID}, "subject_id": {subjectID}}.Encode()
}

func (c *Component) postPage(w http.ResponseWriter, r *http.Request) {
	h := scope.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		component.BadRequest(w, "malformed form")
		return
	}
	if !c.d.CSRF.Verify(h.SessionID(), r.PostForm.Get(form.FieldName)) {
		http.Error(w, "invalid or expired form token", http.StatusForbidden)
		return
	}
	v, err := url.ParseQuery(r.PostForm.Get("pair"))
	if err != nil {
		component.BadRequest(w, "malformed choice")
		return
	}

	if _, err := c.choose(r, v.Get("school_id"), v.Get("subject_id")); err != nil {
		if errors.Is(err, ErrUnknownPair) {
			c.render(w, r, http.StatusUnprocessableEntity, "Please choose one of the listed subjects.")
			return
		}
		component.WriteError(w, err)
		return
	}
	http.Redirect(w, r, c.d.Config.App.LandingPath, http.StatusSeeOther)
}

// choose validates the pair against the user's memberships and stores it.
func (c *Component) choose(r *http.Request, schoolID, subjectID string) (scope.Selection, error) {
	ctx := r.Context()
	u, err := c.d.Upstream.Me(ctx)
	if err != nil {
		return scope.Selection{}, err
	}
	p, ok := findPair(u, schoolID, subjectID)
	if !ok {
		return scope.Selection{}, ErrUnknownPair
	}
	sel := scope.FromPair(p)

	h := scope.FromContext(ctx)
	if err := h.SetContext(ctx, sel); err != nil {
		return scope.Selection{}, err
	}
	c.invalidate(h)
	zap.L().Info("context selected",
		zap.String("school_id", sel.SchoolID),
		zap.String("subject_id", sel.SubjectID))
	return sel, nil
}

func (c *Component) invalidate(h *scope.Handle) {
	if c.d.Slices != nil {
		c.d.Slices.InvalidateSession(h.SessionID())
	}
}

func findPair(u account.User, schoolID, subjectID string) (account.Pair, bool) {
	school, ok := u.FindSchool(schoolID)
	if !ok {
		return account.Pair{}, false
	}
	sub, ok := school.FindSubject(subjectID)
	if !ok {
		return account.Pair{}, false
	}
	return account.Pair{School: school, Subject: sub}, true
}

/*──────────────────────────── API ──────────────────────────────────────────*/

type currentView struct {
	Selection *scope.Selection `json:"selection"`
	Role      string           `json:"role"`
}

func (c *Component) getCurrent(w http.ResponseWriter, r *http.Request) {
	st := scope.FromContext(r.Context()).Snapshot()
	component.WriteJSON(w, http.StatusOK, currentView{Selection: st.Selection, Role: st.Role.String()})
}

func (c *Component) getOptions(w http.ResponseWriter, r *http.Request) {
	u, err := c.d.Upstream.Me(r.Context())
	if err != nil {
		component.WriteError(w, err)
		return
	}
	out := []scope.Selection{}
	for _, p := range u.Pairs() {
		out = append(out, scope.FromPair(p))
	}
	component.WriteJSON(w, http.StatusOK, map[string]any{"options": out})
}

type choice struct {
	SchoolID  string `json:"school_id"  validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
}

func (c *Component) putCurrent(w http.ResponseWriter, r *http.Request) {
	var in choice
	if err := component.DecodeJSON(r, &in); err != nil {
		component.BadRequest(w, "malformed body")
		return
	}
	if err := form.Validate(in); err != nil {
		component.WriteError(w, err)
		return
	}
	sel, err := c.choose(r, in.SchoolID, in.SubjectID)
	if err != nil {
		if errors.Is(err, ErrUnknownPair) {
			component.WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		component.WriteError(w, err)
		return
	}
	role := scope.FromContext(r.Context()).Role().String()
	component.WriteJSON(w, http.StatusOK, currentView{Selection: &sel, Role: role})
}

func (c *Component) deleteCurrent(w http.ResponseWriter, r *http.Request) {
	h := scope.FromContext(r.Context())
	if err := h.ClearContext(r.Context()); err != nil {
		component.WriteError(w, err)
		return
	}
	c.invalidate(h)
	w.WriteHeader(http.StatusNoContent)
}
