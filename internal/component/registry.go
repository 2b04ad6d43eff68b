// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  The composition root calls
// Init(deps) on every component once at boot, then serves them all through
// Dispatch.

package component

import (
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Component contract.
//
// Routes() should mount BOTH page and API endpoints under absolute paths,
// e.g:
//
//	r := chi.NewRouter()
//	r.Get("/select", c.getSelect)
//	r.Route("/api/context", func(api chi.Router) { ... })
//	return r
//
// Routes is called once, after Init.
type Component interface {
	Name() string
	Init(Deps) error
	Routes() chi.Router
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.  A later
// registration under the same name replaces the earlier one.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// InitAll runs Init on each component, stopping at the first error.
func InitAll(cs []Component, d Deps) error {
	for _, c := range cs {
		if err := c.Init(d); err != nil {
			return &InitError{Component: c.Name(), Err: err}
		}
	}
	return nil
}

// InitError names the component whose Init failed.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string { return "component " + e.Component + ": " + e.Err.Error() }

func (e *InitError) Unwrap() error { return e.Err }
