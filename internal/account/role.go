// internal/account/role.go
//
// Closed role enumeration.
//
// Context
// -------
// The upstream API identifies a user's role by a numeric `role_type`
// nested under `role`.  Call sites never compare numbers directly; they
// switch over Role, which has exactly four values.  The session store keeps
// the role as a short marker string ("admin", "teacher", ...), and
// ParseRole is the inverse of String for that marker.
//
// Notes
// -----
//   - Unknown wire values decode to RoleUnknown, which is treated as a
//     non-administrator everywhere.
package account

import (
	"encoding/json"
	"fmt"
)

// Role is the closed set of roles a user may hold.
type Role int

const (
	RoleUnknown Role = iota
	RoleAdministrator
	RoleTeachingStaff
	RoleStudent
)

// Wire values of role.role_type.
const (
	roleTypeAdministrator = 1
	roleTypeTeachingStaff = 2
	roleTypeStudent       = 3
)

// RoleFromType maps the numeric role_type to a Role.
func RoleFromType(t int) Role {
	switch t {
	case roleTypeAdministrator:
		return RoleAdministrator
	case roleTypeTeachingStaff:
		return RoleTeachingStaff
	case roleTypeStudent:
		return RoleStudent
	default:
		return RoleUnknown
	}
}

// Type returns the numeric role_type, or 0 for RoleUnknown.
func (r Role) Type() int {
	switch r {
	case RoleAdministrator:
		return roleTypeAdministrator
	case RoleTeachingStaff:
		return roleTypeTeachingStaff
	case RoleStudent:
		return roleTypeStudent
	case RoleUnknown:
		return 0
	}
	return 0
}

// String returns the session-store marker.
func (r Role) String() string {
	switch r {
	case RoleAdministrator:
		return "admin"
	case RoleTeachingStaff:
		return "teacher"
	case RoleStudent:
		return "student"
	case RoleUnknown:
		return "unknown"
	}
	return "unknown"
}

// ParseRole is the inverse of String.  Empty or unrecognised markers yield
// RoleUnknown.
func ParseRole(marker string) Role {
	switch marker {
	case "admin":
		return RoleAdministrator
	case "teacher":
		return RoleTeachingStaff
	case "student":
		return RoleStudent
	default:
		return RoleUnknown
	}
}

// IsAdmin reports whether r is the administrator role.
func (r Role) IsAdmin() bool { return r == RoleAdministrator }

//
// JSON: {"role_type": N}
//

type roleWire struct {
	RoleType int    `json:"role_type"`
	Name     string `json:"name,omitempty"`
}

// MarshalJSON writes the upstream wire shape.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(roleWire{RoleType: r.Type(), Name: r.String()})
}

// UnmarshalJSON accepts {"role_type": N}, a bare number, or null.
func (r *Role) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = RoleUnknown
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*r = RoleFromType(n)
		return nil
	}
	var w roleWire
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("account: decode role: %w", err)
	}
	*r = RoleFromType(w.RoleType)
	return nil
}
