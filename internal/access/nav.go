package access

import "usfconnect.africa/internal/roles"

// NavItem is one statically declared navigation entry. Roles lists every role
// allowed to see the entry.
type NavItem struct {
	Path  string       `json:"path"`
	Label string       `json:"label"`
	Roles []roles.Role `json:"-"`
}

// DefaultNav is the portal-wide navigation registry. Order matters: entries
// render in declaration order.
var DefaultNav = []NavItem{
	{Path: "/", Label: "Home", Roles: roles.All},
	{Path: "/projects", Label: "Projects", Roles: roles.All},
	{Path: "/practices", Label: "Practices", Roles: []roles.Role{roles.SuperAdmin, roles.CountryAdmin, roles.Editor, roles.Contributor, roles.FocalPoint}},
	{Path: "/resources", Label: "Resources", Roles: roles.All},
	{Path: "/forum", Label: "Forum", Roles: []roles.Role{roles.SuperAdmin, roles.CountryAdmin, roles.Editor, roles.Contributor, roles.FocalPoint}},
	{Path: "/events", Label: "Events", Roles: roles.All},
	{Path: "/dashboard", Label: "Dashboard", Roles: []roles.Role{roles.SuperAdmin, roles.CountryAdmin, roles.FocalPoint}},
	{Path: "/analytics", Label: "Analytics", Roles: []roles.Role{roles.SuperAdmin, roles.CountryAdmin}},
	{Path: "/admin", Label: "Administration", Roles: []roles.Role{roles.SuperAdmin, roles.CountryAdmin}},
}

// VisibleNav filters items down to the entries the role may see. An unknown or
// absent role has already been resolved to roles.Reader by the caller via
// roles.Parse, so this never widens visibility on bad input.
func VisibleNav(items []NavItem, role roles.Role) []NavItem {
	visible := make([]NavItem, 0, len(items))
	for _, item := range items {
		for _, allowed := range item.Roles {
			if allowed == role {
				visible = append(visible, item)
				break
			}
		}
	}
	return visible
}
