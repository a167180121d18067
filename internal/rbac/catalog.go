package rbac

import "strings"

// Permission identifies a single grantable capability. The catalog is
// compiled into the binary and must stay identical across instances that
// share one claim store; stored claim values written by another build may
// reference permissions this build does not know.
type Permission string

// Module groups related permissions for display and bulk assignment. It
// carries no authorization semantics of its own.
type Module string

// ClaimTypePermission is the claim type under which permission grants are
// persisted on role records.
const ClaimTypePermission = "Permission"

// RoleSuperAdmin is the protected role. It cannot be deleted or renamed,
// its claim set is always rewritten to the full catalog, and it passes
// every permission check without consulting claims.
const RoleSuperAdmin = "SuperAdmin"

// Default roles created by the bootstrap seeder.
const (
	RoleAdmin   = "Admin"
	RoleTrainer = "Trainer"
	RoleMember  = "Member"
)

// User management.
const (
	PermUsersView   Permission = "Permissions.Users.View"
	PermUsersCreate Permission = "Permissions.Users.Create"
	PermUsersEdit   Permission = "Permissions.Users.Edit"
	PermUsersDelete Permission = "Permissions.Users.Delete"
)

// Roles and permissions management.
const (
	PermRolesView              Permission = "Permissions.Roles.View"
	PermRolesCreate            Permission = "Permissions.Roles.Create"
	PermRolesEdit              Permission = "Permissions.Roles.Edit"
	PermRolesDelete            Permission = "Permissions.Roles.Delete"
	PermRolesManagePermissions Permission = "Permissions.Roles.ManagePermissions"
)

// Member management.
const (
	PermMembersView   Permission = "Permissions.Members.View"
	PermMembersCreate Permission = "Permissions.Members.Create"
	PermMembersEdit   Permission = "Permissions.Members.Edit"
	PermMembersDelete Permission = "Permissions.Members.Delete"
)

// Trainer management.
const (
	PermTrainersView   Permission = "Permissions.Trainers.View"
	PermTrainersCreate Permission = "Permissions.Trainers.Create"
	PermTrainersEdit   Permission = "Permissions.Trainers.Edit"
	PermTrainersDelete Permission = "Permissions.Trainers.Delete"
)

// Plan management.
const (
	PermPlansView   Permission = "Permissions.Plans.View"
	PermPlansCreate Permission = "Permissions.Plans.Create"
	PermPlansEdit   Permission = "Permissions.Plans.Edit"
	PermPlansDelete Permission = "Permissions.Plans.Delete"
)

// Membership management.
const (
	PermMembershipsView   Permission = "Permissions.Memberships.View"
	PermMembershipsCreate Permission = "Permissions.Memberships.Create"
	PermMembershipsEdit   Permission = "Permissions.Memberships.Edit"
	PermMembershipsDelete Permission = "Permissions.Memberships.Delete"
)

// Session management.
const (
	PermSessionsView   Permission = "Permissions.Sessions.View"
	PermSessionsCreate Permission = "Permissions.Sessions.Create"
	PermSessionsEdit   Permission = "Permissions.Sessions.Edit"
	PermSessionsDelete Permission = "Permissions.Sessions.Delete"
)

// Booking management.
const (
	PermBookingsView           Permission = "Permissions.Bookings.View"
	PermBookingsCreate         Permission = "Permissions.Bookings.Create"
	PermBookingsEdit           Permission = "Permissions.Bookings.Edit"
	PermBookingsDelete         Permission = "Permissions.Bookings.Delete"
	PermBookingsMarkAttendance Permission = "Permissions.Bookings.MarkAttendance"
)

// Dashboard and analytics.
const (
	PermDashboardView Permission = "Permissions.Dashboard.View"
	PermAnalyticsView Permission = "Permissions.Analytics.View"
)

// Catalog modules in display order.
const (
	ModuleUserManagement Module = "User Management"
	ModuleRoles          Module = "Roles & Permissions"
	ModuleMembers        Module = "Members"
	ModuleTrainers       Module = "Trainers"
	ModulePlans          Module = "Plans"
	ModuleMemberships    Module = "Memberships"
	ModuleSessions       Module = "Sessions"
	ModuleBookings       Module = "Bookings"
	ModuleDashboard      Module = "Dashboard & Analytics"
)

// catalog is the single source of truth for the permission set. The policy
// registry, the SuperAdmin grant-all path, and the seeder all derive from
// it; nothing else enumerates permissions.
var catalog = []struct {
	module Module
	perms  []Permission
}{
	{ModuleUserManagement, []Permission{PermUsersView, PermUsersCreate, PermUsersEdit, PermUsersDelete}},
	{ModuleRoles, []Permission{PermRolesView, PermRolesCreate, PermRolesEdit, PermRolesDelete, PermRolesManagePermissions}},
	{ModuleMembers, []Permission{PermMembersView, PermMembersCreate, PermMembersEdit, PermMembersDelete}},
	{ModuleTrainers, []Permission{PermTrainersView, PermTrainersCreate, PermTrainersEdit, PermTrainersDelete}},
	{ModulePlans, []Permission{PermPlansView, PermPlansCreate, PermPlansEdit, PermPlansDelete}},
	{ModuleMemberships, []Permission{PermMembershipsView, PermMembershipsCreate, PermMembershipsEdit, PermMembershipsDelete}},
	{ModuleSessions, []Permission{PermSessionsView, PermSessionsCreate, PermSessionsEdit, PermSessionsDelete}},
	{ModuleBookings, []Permission{PermBookingsView, PermBookingsCreate, PermBookingsEdit, PermBookingsDelete, PermBookingsMarkAttendance}},
	{ModuleDashboard, []Permission{PermDashboardView, PermAnalyticsView}},
}

var known = func() map[Permission]struct{} {
	set := make(map[Permission]struct{})
	for _, entry := range catalog {
		for _, p := range entry.perms {
			set[p] = struct{}{}
		}
	}
	return set
}()

// All returns every catalog permission in stable module order.
func All() []Permission {
	out := make([]Permission, 0, len(known))
	for _, entry := range catalog {
		out = append(out, entry.perms...)
	}
	return out
}

// Modules returns the catalog modules in display order.
func Modules() []Module {
	out := make([]Module, 0, len(catalog))
	for _, entry := range catalog {
		out = append(out, entry.module)
	}
	return out
}

// ByModule returns the catalog grouped by module. The slices are copies;
// callers may reorder them freely.
func ByModule() map[Module][]Permission {
	out := make(map[Module][]Permission, len(catalog))
	for _, entry := range catalog {
		perms := make([]Permission, len(entry.perms))
		copy(perms, entry.perms)
		out[entry.module] = perms
	}
	return out
}

// Known reports whether the permission is part of the compiled catalog.
func Known(p Permission) bool {
	_, ok := known[p]
	return ok
}

func (p Permission) String() string {
	return string(p)
}

// DisplayName derives a human readable label from the identifier:
// "Permissions.Bookings.MarkAttendance" becomes "Bookings MarkAttendance".
func (p Permission) DisplayName() string {
	name := strings.TrimPrefix(string(p), "Permissions.")
	return strings.ReplaceAll(name, ".", " ")
}
