// internal/scoping/scoping.go
//
// Subject-scoping header decorator.
//
// Context
// -------
// The backend filters multi-tenant data by the subject id carried in
// X-School-Subject-ID.  HeadersFor decides, per outbound URL, whether that
// header is attached.  Rules are evaluated in order:
//
//  1. A path containing the "schools" segment is admin-owned: no header.
//  2. A "users" collection call by an administrator: no header.
//  3. A "subjects" collection call by an administrator: no header.
//  4. Otherwise the stored subject id, when present, is attached.
//
// Administrators operate school-wide; a subject id would narrow results the
// backend expects unscoped.
//
// Notes
// -----
//   - Matching is on whole path segments, so "/schoolsx" is not admin-owned.
//   - HeadersFor never reads or writes storage; callers pass a Snapshot.
package scoping

import (
	"net/url"
	"strings"

	"github.com/yanizio/campus/internal/account"
	"github.com/yanizio/campus/internal/metrics"
	"github.com/yanizio/campus/internal/scope"
)

// HeaderName carries the active subject id to the backend.
const HeaderName = "X-School-Subject-ID"

// Path segments that drive the carve-outs.
const (
	AdminSegment    = "schools"
	UsersSegment    = "users"
	SubjectsSegment = "subjects"
)

// Rule names which branch of HeadersFor decided the outcome.
type Rule string

const (
	RuleAdminEndpoint Rule = "admin_endpoint"
	RuleAdminUsers    Rule = "admin_users"
	RuleAdminSubjects Rule = "admin_subjects"
	RuleAttached      Rule = "attached"
	RuleNoContext     Rule = "no_context"
)

// Snapshot is the slice of session state the decorator reads.
type Snapshot struct {
	SubjectID string
	Role      account.Role
}

// SnapshotOf extracts a Snapshot from stored state.
func SnapshotOf(st scope.State) Snapshot {
	return Snapshot{SubjectID: st.SubjectID(), Role: st.Role}
}

// HeadersFor returns the headers to attach to a request for rawURL.  An
// empty map means no decoration.
func HeadersFor(rawURL string, snap Snapshot) map[string]string {
	h, _ := Decide(rawURL, snap)
	return h
}

// Decide is HeadersFor plus the rule that produced the result.
func Decide(rawURL string, snap Snapshot) (map[string]string, Rule) {
	segs := segments(rawURL)

	switch {
	case has(segs, AdminSegment):
		return map[string]string{}, RuleAdminEndpoint
	case has(segs, UsersSegment) && snap.Role.IsAdmin():
		return map[string]string{}, RuleAdminUsers
	case has(segs, SubjectsSegment) && snap.Role.IsAdmin():
		return map[string]string{}, RuleAdminSubjects
	case snap.SubjectID == "":
		return map[string]string{}, RuleNoContext
	default:
		return map[string]string{HeaderName: snap.SubjectID}, RuleAttached
	}
}

func record(r Rule) {
	metrics.ScopingDecisions.WithLabelValues(string(r)).Inc()
}

// segments splits the path of rawURL, ignoring query and fragment.  A URL
// that does not parse is split as a plain path.
func segments(rawURL string) []string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
}

func has(segs []string, want string) bool {
	for _, s := range segs {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}
