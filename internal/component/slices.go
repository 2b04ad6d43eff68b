package component

import (
	"net/http"

	"github.com/yanizio/campus/internal/slice"
)

// ServeSlice lists s with the query's page window and the named filters.
func ServeSlice[T any](s *slice.Slice[T], filters ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.List(r.Context(), slice.ParseQuery(r.URL.Query(), filters...))
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	}
}

// ServeItem returns the cached object of it.
func ServeItem[T any](it *slice.Item[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := it.Get(r.Context())
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, v)
	}
}
