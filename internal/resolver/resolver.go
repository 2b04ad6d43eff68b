// internal/resolver/resolver.go
//
// School/subject context resolution.
//
// Context
// -------
// After login or session verification the gateway must decide whether the
// user's requests can be scoped automatically, need a manual pick, or need
// no scoping at all.  Resolve is a pure function of the User; Apply and
// Resume add the single storage write that follows an automatic pick.
//
//	administrator                         → Skip
//	no schools                            → Skip
//	one school, one subject               → AutoSelected(pair)
//	anything else (incl. zero subjects)   → NeedsSelection(schools)
//
// Notes
// -----
//   - Resolve never fails.  A nil subject list counts as zero subjects.
//   - IsStoredSelectionValid lets a returning session keep its previous
//     pick without being prompted again.
package resolver

import (
	"context"

	"go.uber.org/zap"

	"github.com/yanizio/campus/internal/account"
	"github.com/yanizio/campus/internal/metrics"
	"github.com/yanizio/campus/internal/scope"
)

// Kind discriminates a Decision.
type Kind int

const (
	Skip Kind = iota
	AutoSelected
	NeedsSelection
)

func (k Kind) String() string {
	switch k {
	case Skip:
		return "skip"
	case AutoSelected:
		return "auto_selected"
	case NeedsSelection:
		return "needs_selection"
	}
	return "unknown"
}

// MarshalText lets Kind appear as a JSON string.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Decision is the outcome of Resolve.  Selection is set only for
// AutoSelected; Schools only for NeedsSelection.
type Decision struct {
	Kind      Kind             `json:"decision"`
	Selection *scope.Selection `json:"selection,omitempty"`
	Schools   []account.School `json:"schools,omitempty"`
}

// Resolve classifies u.  It performs no I/O.
func Resolve(u account.User) Decision {
	if u.IsAdmin() {
		return Decision{Kind: Skip}
	}
	if !u.HasSchools() {
		return Decision{Kind: Skip}
	}
	if len(u.Schools) == 1 && len(u.Schools[0].Subjects) == 1 {
		sel := scope.FromPair(account.Pair{
			School:  u.Schools[0],
			Subject: u.Schools[0].Subjects[0],
		})
		return Decision{Kind: AutoSelected, Selection: &sel}
	}
	return Decision{Kind: NeedsSelection, Schools: u.Schools}
}

// Apply resolves u and persists the Selection when it was chosen
// automatically.  Other outcomes leave storage untouched.
func Apply(ctx context.Context, h *scope.Handle, u account.User) (Decision, error) {
	if h == nil {
		return Decision{}, scope.ErrNoSession
	}
	d := Resolve(u)
	if d.Kind == AutoSelected {
		if err := h.SetContext(ctx, *d.Selection); err != nil {
			return Decision{}, err
		}
	}
	metrics.ResolverDecisions.WithLabelValues(d.Kind.String()).Inc()
	return d, nil
}

// IsStoredSelectionValid reports whether stored names a school/subject pair
// present in u's memberships.  Administrators and users without schools
// never have a valid stored selection.
func IsStoredSelectionValid(stored scope.Selection, u account.User) bool {
	if u.IsAdmin() || !u.HasSchools() {
		return false
	}
	school, ok := u.FindSchool(stored.SchoolID)
	if !ok {
		return false
	}
	_, ok = school.FindSubject(stored.SubjectID)
	return ok
}

// Resume reuses a still-valid stored selection, reporting it as
// AutoSelected without writing.  A stored selection that is no longer valid
// is cleared before falling back to Apply.
func Resume(ctx context.Context, h *scope.Handle, u account.User) (Decision, error) {
	if h == nil {
		return Decision{}, scope.ErrNoSession
	}
	if stored, ok := h.GetContext(); ok {
		if IsStoredSelectionValid(stored, u) {
			metrics.ResolverDecisions.WithLabelValues("resumed").Inc()
			return Decision{Kind: AutoSelected, Selection: &stored}, nil
		}
		// Administrators fall through here too; their scope is school-wide.
		if err := h.ClearContext(ctx); err != nil {
			return Decision{}, err
		}
		zap.L().Debug("stale selection cleared",
			zap.String("school_id", stored.SchoolID),
			zap.String("subject_id", stored.SubjectID))
	}
	return Apply(ctx, h, u)
}
