// components/textai/textai.go
//
// AI text processing: summarize, generate questions, simplify.
//
// Processing calls are never cached; each POST reaches the backend.  The
// job history is an ordinary cached slice and is dropped after every new
// job so it shows up on the next read.

package textai

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/campus/internal/acl"
	"github.com/yanizio/campus/internal/component"
	"github.com/yanizio/campus/internal/form"
	"github.com/yanizio/campus/internal/scope"
	"github.com/yanizio/campus/internal/slice"
)

// Operations.
const (
	OpSummarize         = "summarize"
	OpGenerateQuestions = "generate_questions"
	OpSimplify          = "simplify"
)

// MaxText bounds the input length in bytes.
const MaxText = 20000

// Request is one processing request.
type Request struct {
	Operation string `json:"operation" validate:"required,oneof=summarize generate_questions simplify"`
	Text      string `json:"text"      validate:"required,max=20000"`
	Count     int    `json:"count,omitempty"    validate:"omitempty,min=1,max=20"`
	Language  string `json:"language,omitempty" validate:"omitempty,max=8"`
}

// Job is one history entry.
type Job struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

var _ component.Component = (*Component)(nil)

// Component serves /api/ai.
type Component struct {
	d    component.Deps
	jobs *slice.Slice[Job]
}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string { return "textai" }

func (c *Component) Init(d component.Deps) error {
	if d.Config == nil || d.Upstream == nil || d.Slices == nil {
		return errors.New("textai: config, upstream and slices are required")
	}
	c.d = d
	c.jobs = slice.New[Job]("ai_jobs", "/ai/jobs", d.Upstream, d.Config.Cache.TTL)
	d.Slices.Add(c.jobs)
	return nil
}

func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/api/ai", func(r chi.Router) {
		r.Use(acl.RequireSession)
		r.Post("/text", c.process)
		r.Get("/jobs", component.ServeSlice(c.jobs, "operation", "status"))
	})
	return r
}

func (c *Component) process(w http.ResponseWriter, r *http.Request) {
	var in Request
	if err := component.DecodeJSON(r, &in); err != nil {
		component.BadRequest(w, "malformed body")
		return
	}
	if in.Operation != OpGenerateQuestions {
		in.Count = 0
	} else if in.Count == 0 {
		in.Count = 5
	}
	if err := form.Validate(in); err != nil {
		component.WriteError(w, err)
		return
	}

	var out json.RawMessage
	if err := c.d.Upstream.Post(r.Context(), "/ai/text", in, &out); err != nil {
		component.WriteError(w, err)
		return
	}
	c.jobs.Invalidate(scope.FromContext(r.Context()).SessionID())
	if len(out) == 0 {
		out = json.RawMessage("{}")
	}
	component.WriteJSON(w, http.StatusOK, out)
}
