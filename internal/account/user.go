// internal/account/user.go
//
// User, School, and SchoolSubject as returned by the upstream auth service.
// A user is immutable for the life of a session except when a fresh fetch
// supersedes it.
package account

// SchoolSubject is one subject offered by a school.
type SchoolSubject struct {
	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subject_name"`
}

// School is a school membership with its ordered subject list.  A school
// with no subjects is valid but offers no usable context.
type School struct {
	SchoolID   string          `json:"school_id"`
	SchoolName string          `json:"school_name"`
	Subjects   []SchoolSubject `json:"subjects"`
}

// FindSubject returns the subject with the given id.
func (s School) FindSubject(subjectID string) (SchoolSubject, bool) {
	for _, sub := range s.Subjects {
		if sub.SubjectID == subjectID {
			return sub, true
		}
	}
	return SchoolSubject{}, false
}

// User is an authenticated identity.
type User struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Role    Role     `json:"role"`
	Schools []School `json:"schools"`
}

// IsAdmin reports whether the user holds the administrator role.
func (u User) IsAdmin() bool { return u.Role.IsAdmin() }

// HasSchools reports whether the user belongs to at least one school.
func (u User) HasSchools() bool { return len(u.Schools) > 0 }

// FindSchool returns the membership with the given school id.
func (u User) FindSchool(schoolID string) (School, bool) {
	for _, s := range u.Schools {
		if s.SchoolID == schoolID {
			return s, true
		}
	}
	return School{}, false
}

// Pair is one selectable (school, subject) combination.
type Pair struct {
	School  School
	Subject SchoolSubject
}

// Pairs enumerates every (school × subject) combination in membership
// order.  Schools without subjects contribute nothing.
func (u User) Pairs() []Pair {
	var out []Pair
	for _, s := range u.Schools {
		for _, sub := range s.Subjects {
			out = append(out, Pair{School: s, Subject: sub})
		}
	}
	return out
}
