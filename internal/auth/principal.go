package auth

import "usfconnect.africa/internal/roles"

// Principal represents an authenticated member with a resolved role.
type Principal struct {
	MemberID    string
	Role        roles.Role
	Permissions map[string]struct{}
}

// NewPrincipal constructs a principal with permissions derived from the role.
func NewPrincipal(memberID string, role roles.Role) Principal {
	perms := PermissionsForRole(role)
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return Principal{MemberID: memberID, Role: role, Permissions: set}
}

// HasPermission reports whether the principal can execute the action
// identified by key.
func (p Principal) HasPermission(key string) bool {
	_, ok := p.Permissions[key]
	return ok
}
