package component

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type mounted struct {
	name string
	r    chi.Router
}

// Dispatch serves every component from one handler.  Each request goes to
// the first component, in slice order, whose router matches its method
// and path; unmatched requests get 404.
//
// chi refuses a second Mount at "/", so components cannot be mounted side
// by side.  The outer route context is dropped before delegating so each
// component router matches the full request path.
func Dispatch(cs []Component) http.Handler {
	ms := make([]mounted, 0, len(cs))
	for _, c := range cs {
		ms = append(ms, mounted{name: c.Name(), r: c.Routes()})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.RawPath
		if path == "" {
			path = r.URL.Path
		}
		for _, m := range ms {
			if m.r.Match(chi.NewRouteContext(), r.Method, path) {
				ctx := context.WithValue(r.Context(), chi.RouteCtxKey, nil)
				m.r.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}
		http.NotFound(w, r)
	})
}
