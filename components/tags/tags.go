// Package tags serves the subject's tag vocabulary used to filter
// exercises and videos.
package tags

import (
	"errors"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/campus/internal/acl"
	"github.com/yanizio/campus/internal/component"
	"github.com/yanizio/campus/internal/slice"
)

// Tag is one label.
type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

var _ component.Component = (*Component)(nil)

// Component serves GET /api/tags.
type Component struct {
	list *slice.Slice[Tag]
}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string { return "tags" }

func (c *Component) Init(d component.Deps) error {
	if d.Config == nil || d.Upstream == nil || d.Slices == nil {
		return errors.New("tags: config, upstream and slices are required")
	}
	c.list = slice.New[Tag]("tags", "/tags", d.Upstream, d.Config.Cache.TTL)
	d.Slices.Add(c.list)
	return nil
}

func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(acl.RequireSession).Get("/api/tags", component.ServeSlice(c.list, "search"))
	return r
}
