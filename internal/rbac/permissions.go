package rbac

// Permission names an action on a resource.
type Permission string

// Statically enumerated permissions.
const (
	PermUsersView   Permission = "users.view"
	PermUsersCreate Permission = "users.create"
	PermUsersUpdate Permission = "users.update"
	PermUsersDelete Permission = "users.delete"

	PermPowerUnitsView   Permission = "power-units.view"
	PermPowerUnitsCreate Permission = "power-units.create"
	PermPowerUnitsUpdate Permission = "power-units.update"
	PermPowerUnitsDelete Permission = "power-units.delete"

	PermMaintenanceView   Permission = "maintenance.view"
	PermMaintenanceCreate Permission = "maintenance.create"
	PermMaintenanceUpdate Permission = "maintenance.update"
	PermMaintenanceDelete Permission = "maintenance.delete"

	PermReportsView   Permission = "reports.view"
	PermReportsCreate Permission = "reports.create"
	PermReportsDelete Permission = "reports.delete"

	PermSystemConfig Permission = "system.config"
	PermSystemAudit  Permission = "system.audit"

	PermDashboardView  Permission = "dashboard.view"
	PermDashboardAdmin Permission = "dashboard.admin"
)

var (
	adminOnly   = []Role{RoleAdmin}
	adminAndOps = []Role{RoleAdmin, RoleOperator}
	everyone    = []Role{RoleAdmin, RoleOperator, RoleViewer}
)

// permissionTable is built once and never written afterwards.
var permissionTable = buildTable(map[Permission][]Role{
	PermUsersView:   adminOnly,
	PermUsersCreate: adminOnly,
	PermUsersUpdate: adminOnly,
	PermUsersDelete: adminOnly,

	PermPowerUnitsView:   everyone,
	PermPowerUnitsCreate: adminAndOps,
	PermPowerUnitsUpdate: adminAndOps,
	PermPowerUnitsDelete: adminOnly,

	PermMaintenanceView:   everyone,
	PermMaintenanceCreate: adminAndOps,
	PermMaintenanceUpdate: adminAndOps,
	PermMaintenanceDelete: adminAndOps,

	PermReportsView:   everyone,
	PermReportsCreate: adminAndOps,
	PermReportsDelete: adminOnly,

	PermSystemConfig: adminOnly,
	PermSystemAudit:  adminOnly,

	PermDashboardView:  everyone,
	PermDashboardAdmin: adminOnly,
})

func buildTable(src map[Permission][]Role) map[Permission]map[Role]struct{} {
	table := make(map[Permission]map[Role]struct{}, len(src))
	for perm, roles := range src {
		set := make(map[Role]struct{}, len(roles))
		for _, r := range roles {
			set[r] = struct{}{}
		}
		table[perm] = set
	}
	return table
}

// Permissions lists every known permission.
func Permissions() []Permission {
	out := make([]Permission, 0, len(permissionTable))
	for p := range permissionTable {
		out = append(out, p)
	}
	return out
}

// HasPermission reports whether role may exercise perm. Unknown permissions
// are denied for everyone.
func HasPermission(role Role, perm Permission) bool {
	allowed, ok := permissionTable[perm]
	if !ok {
		return false
	}
	_, ok = allowed[role]
	return ok
}

// HasAnyPermission reports whether role holds at least one of perms.
// An empty list yields false.
func HasAnyPermission(role Role, perms []Permission) bool {
	for _, p := range perms {
		if HasPermission(role, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether role holds every one of perms.
// An empty list yields true; callers that need at least one explicit
// permission must check the length themselves.
func HasAllPermissions(role Role, perms []Permission) bool {
	for _, p := range perms {
		if !HasPermission(role, p) {
			return false
		}
	}
	return true
}

// CheckUserPermission is HasPermission for a role that may be absent.
func CheckUserPermission(role Role, perm Permission) bool {
	if role == "" {
		return false
	}
	return HasPermission(role, perm)
}

// HasRoleLevel reports whether role ranks at or above required. Unknown
// roles on either side never satisfy the check.
func HasRoleLevel(role, required Role) bool {
	if !role.Valid() || !required.Valid() {
		return false
	}
	return role.Rank() >= required.Rank()
}

// AvailableRoles lists the roles current may assign to other users.
func AvailableRoles(current Role) []Role {
	switch current {
	case RoleAdmin:
		return []Role{RoleAdmin, RoleOperator, RoleViewer}
	case RoleOperator:
		return []Role{RoleViewer}
	default:
		return []Role{}
	}
}

// CanAssign reports whether current may hand out target.
func CanAssign(current, target Role) bool {
	for _, r := range AvailableRoles(current) {
		if r == target {
			return true
		}
	}
	return false
}
