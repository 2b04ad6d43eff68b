// components/videos/videos.go
//
// Videos: subject-scoped library and assignment to classes.

package videos

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/campus/internal/account"
	"github.com/yanizio/campus/internal/acl"
	"github.com/yanizio/campus/internal/component"
	"github.com/yanizio/campus/internal/form"
	"github.com/yanizio/campus/internal/scope"
	"github.com/yanizio/campus/internal/slice"
)

const basePath = "/videos"

// Video is one library entry.
type Video struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	DurationSec int      `json:"duration_seconds"`
	Tags        []string `json:"tags"`
}

// Assignment hands a video to a class with an optional due date.
type Assignment struct {
	ClassID string     `json:"class_id"         validate:"required"`
	DueAt   *time.Time `json:"due_at,omitempty"`
	Note    string     `json:"note,omitempty"   validate:"max=500"`
}

var _ component.Component = (*Component)(nil)

// Component serves /api/videos.
type Component struct {
	d    component.Deps
	list *slice.Slice[Video]
}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string { return "videos" }

func (c *Component) Init(d component.Deps) error {
	if d.Config == nil || d.Upstream == nil || d.Slices == nil {
		return errors.New("videos: config, upstream and slices are required")
	}
	c.d = d
	c.list = slice.New[Video]("videos", basePath, d.Upstream, d.Config.Cache.TTL)
	d.Slices.Add(c.list)
	return nil
}

func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/api/videos", func(r chi.Router) {
		r.Use(acl.RequireSession)
		r.Get("/", component.ServeSlice(c.list, "search", "tag"))
		r.With(acl.RequireRole(account.RoleTeachingStaff)).
			Post("/{id}/assignments", c.assign)
	})
	return r
}

func (c *Component) assign(w http.ResponseWriter, r *http.Request) {
	var in Assignment
	if err := component.DecodeJSON(r, &in); err != nil {
		component.BadRequest(w, "malformed body")
		return
	}
	if err := form.Validate(in); err != nil {
		component.WriteError(w, err)
		return
	}
	if in.DueAt != nil && in.DueAt.Before(time.Now()) {
		component.WriteError(w, &form.ValidationError{Fields: []form.ErrorField{
			{Name: "due_at", Message: "must be in the future"},
		}})
		return
	}

	id := chi.URLParam(r, "id")
	var out json.RawMessage
	if err := c.d.Upstream.Post(r.Context(), basePath+"/"+url.PathEscape(id)+"/assignments", in, &out); err != nil {
		component.WriteError(w, err)
		return
	}
	c.list.Invalidate(scope.FromContext(r.Context()).SessionID())
	zap.L().Info("video assigned", zap.String("video_id", id), zap.String("class_id", in.ClassID))

	if len(out) == 0 {
		out = json.RawMessage("{}")
	}
	component.WriteJSON(w, http.StatusCreated, out)
}
