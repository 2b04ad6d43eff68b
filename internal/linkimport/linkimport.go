// internal/linkimport/linkimport.go
//
// Deep-link context import.
//
// Context
// -------
// E-mails and external pages link into the application with the context
// already chosen:
//
//	/exercises?school_id=S1&school_name=Acme&subject_id=M1&subject_name=Math
//
// When all four parameters are present the Selection they describe is
// written to the session before any handler that talks to the backend
// runs, and the parameters are stripped from the visible address.  For
// GET and HEAD that is a 303 to the scrubbed URL, so the browser's address
// bar and history no longer carry them.
//
// Notes
// -----
//   - Imported selections are trusted.  They are not checked against the
//     user's memberships; the origin of every import is logged instead.
//   - Name fields arrive encoded twice by some mailers and are decoded once
//     more; a value that does not decode is kept as-is.
package linkimport

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/campus/internal/metrics"
	"github.com/yanizio/campus/internal/requestinfo"
	"github.com/yanizio/campus/internal/scope"
)

// Query parameter names.
const (
	ParamSchoolID    = "school_id"
	ParamSchoolName  = "school_name"
	ParamSubjectID   = "subject_id"
	ParamSubjectName = "subject_name"
)

var params = [...]string{ParamSchoolID, ParamSchoolName, ParamSubjectID, ParamSubjectName}

// Import extracts a Selection from u.  It reports false, and returns u
// unchanged, unless all four parameters carry a value.  The returned URL is
// a copy of u without the four parameters; other parameters keep their
// order.
func Import(u *url.URL) (scope.Selection, *url.URL, bool) {
	q := u.Query()
	for _, p := range params {
		if q.Get(p) == "" {
			return scope.Selection{}, u, false
		}
	}

	sel := scope.Selection{
		SchoolID:    q.Get(ParamSchoolID),
		SchoolName:  decodeName(q.Get(ParamSchoolName)),
		SubjectID:   q.Get(ParamSubjectID),
		SubjectName: decodeName(q.Get(ParamSubjectName)),
	}

	out := *u
	out.RawQuery = strip(u.RawQuery)
	out.ForceQuery = false
	return sel, &out, true
}

// Link returns a copy of base carrying sel as import parameters.  Names are
// encoded twice so Import restores them exactly.
func Link(base *url.URL, sel scope.Selection) *url.URL {
	out := *base
	q := base.Query()
	q.Set(ParamSchoolID, sel.SchoolID)
	q.Set(ParamSchoolName, url.PathEscape(sel.SchoolName))
	q.Set(ParamSubjectID, sel.SubjectID)
	q.Set(ParamSubjectName, url.PathEscape(sel.SubjectName))
	out.RawQuery = q.Encode()
	return &out
}

// decodeName undoes the inner encoding of a name.  A literal '+' is kept,
// matching how browsers percent-encode URI components.
func decodeName(v string) string {
	if d, err := url.PathUnescape(v); err == nil {
		return d
	}
	return v
}

// strip drops the import parameters from a raw query string.
func strip(raw string) string {
	if raw == "" {
		return ""
	}
	var kept []string
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		key := part
		if i := strings.IndexByte(part, '='); i >= 0 {
			key = part[:i]
		}
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if isParam(key) {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "&")
}

func isParam(key string) bool {
	for _, p := range params {
		if key == p {
			return true
		}
	}
	return false
}

// Importer writes imported selections into the request's session.
type Importer struct {
	log *zap.Logger
}

// New returns an Importer logging through log, or zap.L() when nil.
func New(log *zap.Logger) *Importer {
	if log == nil {
		log = zap.L()
	}
	return &Importer{log: log}
}

// FromRequest imports the context carried by r's URL into the session held
// in r's context.  It returns the scrubbed URL and whether an import
// happened.  The write is unconditional.
func (im *Importer) FromRequest(r *http.Request) (*url.URL, bool, error) {
	sel, scrubbed, ok := Import(r.URL)
	if !ok {
		return r.URL, false, nil
	}

	h := scope.FromContext(r.Context())
	if h == nil {
		metrics.LinkImports.WithLabelValues("no_session").Inc()
		return r.URL, false, scope.ErrNoSession
	}
	if err := h.SetContext(r.Context(), sel); err != nil {
		metrics.LinkImports.WithLabelValues("error").Inc()
		return r.URL, false, err
	}

	metrics.LinkImports.WithLabelValues("imported").Inc()
	fields := append([]zap.Field{
		zap.String("school_id", sel.SchoolID),
		zap.String("subject_id", sel.SubjectID),
		zap.String("path", r.URL.Path),
	}, requestinfo.FromContext(r.Context()).Origin().Fields()...)
	im.log.Info("context imported from link", fields...)

	return scrubbed, true, nil
}

// Middleware runs the import before next.  It must be mounted after the
// session middleware and before any route that calls the backend.
func (im *Importer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scrubbed, ok, err := im.FromRequest(r)
		if err != nil {
			// Serve the request unscoped rather than fail the page load.
			im.log.Warn("link import failed", zap.Error(err), zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		switch r.Method {
		case http.MethodGet, http.MethodHead:
			http.Redirect(w, r, scrubbed.RequestURI(), http.StatusSeeOther)
		default:
			r2 := r.Clone(r.Context())
			r2.URL = scrubbed
			r2.RequestURI = scrubbed.RequestURI()
			next.ServeHTTP(w, r2)
		}
	})
}
