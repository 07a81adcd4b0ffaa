package auth

import "usfconnect.africa/internal/roles"

const (
	PermMembersManage     = "members.manage"
	PermMembersRoleUpdate = "members.role.update"
	PermStatsAdvanced     = "stats.advanced"
	PermContentPublish    = "content.publish"
)

// rolePermissions fixes what each portal role may do. The mapping is static:
// roles are the unit of administration, not individual permissions.
var rolePermissions = map[roles.Role][]string{
	roles.SuperAdmin: {
		PermMembersManage,
		PermMembersRoleUpdate,
		PermStatsAdvanced,
		PermContentPublish,
	},
	roles.CountryAdmin: {
		PermMembersManage,
		PermMembersRoleUpdate,
		PermStatsAdvanced,
		PermContentPublish,
	},
	roles.Editor: {
		PermContentPublish,
	},
	roles.Contributor: {
		PermContentPublish,
	},
	roles.FocalPoint: {
		PermStatsAdvanced,
	},
	roles.Reader: {},
}

// PermissionsForRole returns the permission keys granted to a role.
func PermissionsForRole(role roles.Role) []string {
	return rolePermissions[role]
}
