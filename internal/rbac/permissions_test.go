package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionTable(t *testing.T) {
	cases := []struct {
		perm    Permission
		allowed []Role
	}{
		{PermUsersView, []Role{RoleAdmin}},
		{PermUsersCreate, []Role{RoleAdmin}},
		{PermUsersUpdate, []Role{RoleAdmin}},
		{PermUsersDelete, []Role{RoleAdmin}},
		{PermPowerUnitsView, []Role{RoleAdmin, RoleOperator, RoleViewer}},
		{PermPowerUnitsCreate, []Role{RoleAdmin, RoleOperator}},
		{PermPowerUnitsUpdate, []Role{RoleAdmin, RoleOperator}},
		{PermPowerUnitsDelete, []Role{RoleAdmin}},
		{PermMaintenanceView, []Role{RoleAdmin, RoleOperator, RoleViewer}},
		{PermMaintenanceCreate, []Role{RoleAdmin, RoleOperator}},
		{PermMaintenanceUpdate, []Role{RoleAdmin, RoleOperator}},
		{PermMaintenanceDelete, []Role{RoleAdmin, RoleOperator}},
		{PermReportsView, []Role{RoleAdmin, RoleOperator, RoleViewer}},
		{PermReportsCreate, []Role{RoleAdmin, RoleOperator}},
		{PermReportsDelete, []Role{RoleAdmin}},
		{PermSystemConfig, []Role{RoleAdmin}},
		{PermSystemAudit, []Role{RoleAdmin}},
		{PermDashboardView, []Role{RoleAdmin, RoleOperator, RoleViewer}},
		{PermDashboardAdmin, []Role{RoleAdmin}},
	}
	assert.Len(t, Permissions(), len(cases))
	for _, tc := range cases {
		for _, role := range Roles {
			want := false
			for _, a := range tc.allowed {
				if a == role {
					want = true
				}
			}
			assert.Equalf(t, want, HasPermission(role, tc.perm), "%s/%s", role, tc.perm)
		}
	}
}

func TestUnknownPermissionDenied(t *testing.T) {
	for _, role := range Roles {
		assert.False(t, HasPermission(role, Permission("reports.export")))
	}
	assert.False(t, HasPermission(Role("SUPERUSER"), PermDashboardView))
}

func TestHasAnyAndAll(t *testing.T) {
	assert.True(t, HasAnyPermission(RoleViewer, []Permission{PermUsersView, PermReportsView}))
	assert.False(t, HasAnyPermission(RoleViewer, []Permission{PermUsersView, PermSystemAudit}))
	assert.False(t, HasAnyPermission(RoleAdmin, nil))

	assert.True(t, HasAllPermissions(RoleOperator, []Permission{PermReportsView, PermReportsCreate}))
	assert.False(t, HasAllPermissions(RoleOperator, []Permission{PermReportsView, PermReportsDelete}))
	assert.True(t, HasAllPermissions(RoleViewer, nil))
}

func TestCheckUserPermission(t *testing.T) {
	assert.False(t, CheckUserPermission("", PermDashboardView))
	assert.True(t, CheckUserPermission(RoleViewer, PermDashboardView))
	assert.False(t, CheckUserPermission(RoleViewer, PermReportsCreate))
}

func TestHasRoleLevel(t *testing.T) {
	assert.True(t, HasRoleLevel(RoleAdmin, RoleViewer))
	assert.True(t, HasRoleLevel(RoleOperator, RoleOperator))
	assert.False(t, HasRoleLevel(RoleViewer, RoleOperator))
	assert.False(t, HasRoleLevel(Role("ROOT"), RoleViewer))
	assert.False(t, HasRoleLevel(RoleAdmin, Role("ROOT")))
	assert.False(t, HasRoleLevel("", RoleViewer))
}

func TestAvailableRoles(t *testing.T) {
	assert.Equal(t, []Role{RoleAdmin, RoleOperator, RoleViewer}, AvailableRoles(RoleAdmin))
	assert.Equal(t, []Role{RoleViewer}, AvailableRoles(RoleOperator))
	assert.Empty(t, AvailableRoles(RoleViewer))
	assert.Empty(t, AvailableRoles(""))

	assert.True(t, CanAssign(RoleAdmin, RoleAdmin))
	assert.True(t, CanAssign(RoleOperator, RoleViewer))
	assert.False(t, CanAssign(RoleOperator, RoleOperator))
	assert.False(t, CanAssign(RoleViewer, RoleViewer))
}

func TestRoleHelpers(t *testing.T) {
	r, ok := ParseRole("OPERATOR")
	assert.True(t, ok)
	assert.Equal(t, RoleOperator, r)
	_, ok = ParseRole("operator")
	assert.False(t, ok)

	assert.Equal(t, "Administrator", RoleAdmin.DisplayName())
	assert.Equal(t, "Unknown", Role("X").DisplayName())
	assert.Equal(t, 0, Role("").Rank())
	assert.Equal(t, "No description available", Role("").Description())
}
