package roles

import "strings"

// Role is one of the closed set of portal roles. A member holds exactly one
// role at a time; changes go through the directory service only.
type Role string

const (
	SuperAdmin   Role = "super_admin"
	CountryAdmin Role = "country_admin"
	Editor       Role = "editor"
	Contributor  Role = "contributor"
	Reader       Role = "reader"
	FocalPoint   Role = "focal_point"
)

// All lists every valid role, most privileged first.
var All = []Role{SuperAdmin, CountryAdmin, Editor, Contributor, Reader, FocalPoint}

// Parse resolves a raw role string. Unknown, empty, or malformed input maps to
// Reader, the least-privileged role, never to an error.
func Parse(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case SuperAdmin:
		return SuperAdmin
	case CountryAdmin:
		return CountryAdmin
	case Editor:
		return Editor
	case Contributor:
		return Contributor
	case Reader:
		return Reader
	case FocalPoint:
		return FocalPoint
	default:
		return Reader
	}
}

// Valid reports whether raw names a known role exactly.
func Valid(raw string) bool {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range All {
		if r == known {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role carries administrative privileges.
func (r Role) IsAdmin() bool {
	return r == SuperAdmin || r == CountryAdmin
}

func (r Role) String() string { return string(r) }
