// internal/scope/store.go
//
// Session context store contract.
//
// Context
// -------
// Each browser session owns exactly one State: the active Selection (the
// school and subject that scope its requests), the role marker, and the
// upstream bearer token written by the login flow.  The Selection is
// overwritten as a whole, never merged.  It is created by the resolver, the
// selection page, or the link importer, read on every outbound request, and
// destroyed on logout or explicit clear.
//
// Two implementations exist:
//
//   - MemoryStore – process-local map with an idle-TTL evictor.
//   - MySQLStore  – sqlx over MySQL so several gateway instances share
//     sessions.
//
// Notes
// -----
//   - A session that was never written loads as the zero State; absence is
//     not an error.
package scope

import (
	"context"
	"errors"
	"time"

	"github.com/yanizio/campus/internal/account"
)

// ErrNoSession is returned when an operation needs a session id and none
// is attached to the request.
var ErrNoSession = errors.New("scope: no session")

// Selection is the stored (school, subject) context record.
type Selection struct {
	SchoolID    string `json:"school_id"`
	SchoolName  string `json:"school_name"`
	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subject_name"`
}

// IsZero reports whether no field is set.
func (s Selection) IsZero() bool { return s == Selection{} }

// FromPair builds a Selection from a membership pair.
func FromPair(p account.Pair) Selection {
	return Selection{
		SchoolID:    p.School.SchoolID,
		SchoolName:  p.School.SchoolName,
		SubjectID:   p.Subject.SubjectID,
		SubjectName: p.Subject.SubjectName,
	}
}

// State is everything stored for one session.
type State struct {
	Selection *Selection
	Role      account.Role
	Token     string
	UpdatedAt time.Time
}

// SubjectID returns the scoping value, or "" when no context is set.
func (st State) SubjectID() string {
	if st.Selection == nil {
		return ""
	}
	return st.Selection.SubjectID
}

// Store persists State per session id.
type Store interface {
	// Load returns the zero State when sid has never been written.
	Load(ctx context.Context, sid string) (State, error)
	// PutSelection overwrites the session's Selection.
	PutSelection(ctx context.Context, sid string, sel Selection) error
	// ClearSelection removes the Selection but keeps auth data.
	ClearSelection(ctx context.Context, sid string) error
	// PutAuth records the role marker and bearer token after login.
	PutAuth(ctx context.Context, sid string, role account.Role, token string) error
	// Rename moves the State stored under from to to, replacing anything
	// stored under to.  A missing from is not an error.
	Rename(ctx context.Context, from, to string) error
	// Delete destroys everything stored for sid.
	Delete(ctx context.Context, sid string) error
}
