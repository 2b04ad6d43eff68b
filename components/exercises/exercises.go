// components/exercises/exercises.go
//
// Exercises: subject-scoped list, completion tracking, and question
// authoring.

package exercises

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/campus/internal/account"
	"github.com/yanizio/campus/internal/acl"
	"github.com/yanizio/campus/internal/component"
	"github.com/yanizio/campus/internal/form"
	"github.com/yanizio/campus/internal/scope"
	"github.com/yanizio/campus/internal/slice"
)

// Upstream collection path.
const basePath = "/exercises"

// Exercise is one entry of the list.
type Exercise struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Status        string   `json:"status"`
	Tags          []string `json:"tags"`
	Completed     bool     `json:"completed"`
	QuestionCount int      `json:"question_count"`
}

var _ component.Component = (*Component)(nil)

// Component serves /api/exercises.
type Component struct {
	d    component.Deps
	list *slice.Slice[Exercise]
}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string { return "exercises" }

func (c *Component) Init(d component.Deps) error {
	if d.Config == nil || d.Upstream == nil || d.Slices == nil {
		return errors.New("exercises: config, upstream and slices are required")
	}
	c.d = d
	c.list = slice.New[Exercise]("exercises", basePath, d.Upstream, d.Config.Cache.TTL)
	d.Slices.Add(c.list)
	return nil
}

func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/api/exercises", func(r chi.Router) {
		r.Use(acl.RequireSession)
		r.Get("/", component.ServeSlice(c.list, "status", "tag", "search"))
		r.Post("/{id}/completion", c.complete)
		r.With(acl.RequireRole(account.RoleTeachingStaff)).
			Post("/{id}/questions", c.addQuestion)
	})
	return r
}

func (c *Component) complete(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Score *int `json:"score,omitempty" validate:"omitempty,gte=0"`
	}
	if err := component.DecodeJSON(r, &in); err != nil && !errors.Is(err, io.EOF) {
		component.BadRequest(w, "malformed body")
		return
	}
	if err := form.Validate(in); err != nil {
		component.WriteError(w, err)
		return
	}
	var out json.RawMessage
	path := basePath + "/" + url.PathEscape(chi.URLParam(r, "id")) + "/completion"
	if err := c.d.Upstream.Post(r.Context(), path, in, &out); err != nil {
		component.WriteError(w, err)
		return
	}
	c.list.Invalidate(scope.FromContext(r.Context()).SessionID())
	writeRaw(w, http.StatusOK, out)
}

func (c *Component) addQuestion(w http.ResponseWriter, r *http.Request) {
	var q Question
	if err := component.DecodeJSON(r, &q); err != nil {
		component.BadRequest(w, "malformed body")
		return
	}
	if err := form.Validate(q); err != nil {
		component.WriteError(w, err)
		return
	}
	var out json.RawMessage
	path := basePath + "/" + url.PathEscape(chi.URLParam(r, "id")) + "/questions"
	if err := c.d.Upstream.Post(r.Context(), path, q, &out); err != nil {
		component.WriteError(w, err)
		return
	}
	c.list.Invalidate(scope.FromContext(r.Context()).SessionID())
	writeRaw(w, http.StatusCreated, out)
}

// writeRaw relays an upstream body, or {} when it was empty.
func writeRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}
	component.WriteJSON(w, status, body)
}
