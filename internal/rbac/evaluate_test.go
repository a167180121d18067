package rbac_test

import (
	"testing"

	"github.com/vitagym/vitagym/internal/rbac"
	_ "github.com/vitagym/vitagym/testing"
)

func memberWith(perms ...rbac.Permission) rbac.Principal {
	claims := make([]rbac.Claim, 0, len(perms))
	for _, p := range perms {
		claims = append(claims, rbac.Claim{Type: rbac.ClaimTypePermission, Value: string(p)})
	}
	return rbac.Principal{UserID: 7, Roles: []string{rbac.RoleMember}, Claims: claims}
}

func TestEvaluateBlankFailsClosed(t *testing.T) {
	super := rbac.Principal{UserID: 1, Roles: []string{rbac.RoleSuperAdmin}}
	for _, required := range []rbac.Permission{"", "   ", "\t"} {
		if rbac.Evaluate(super, required) {
			t.Fatalf("blank requirement %q must deny even for SuperAdmin", required)
		}
	}
}

func TestEvaluateSuperAdminOverride(t *testing.T) {
	super := rbac.Principal{UserID: 1, Roles: []string{rbac.RoleAdmin, rbac.RoleSuperAdmin}}
	if !rbac.Evaluate(super, rbac.PermRolesManagePermissions) {
		t.Fatalf("SuperAdmin must pass without claims")
	}
	// Even for values outside the catalog.
	if !rbac.Evaluate(super, "Permissions.Unknown.View") {
		t.Fatalf("SuperAdmin must pass for non-catalog values")
	}
}

func TestEvaluateExactClaimMatch(t *testing.T) {
	p := memberWith(rbac.PermMembersView)

	if !rbac.Evaluate(p, rbac.PermMembersView) {
		t.Fatalf("exact claim must allow")
	}
	if rbac.Evaluate(p, "Permissions.Members.ViewAll") {
		t.Fatalf("no prefix matching: ViewAll must not be granted by View")
	}
	if rbac.Evaluate(p, "permissions.members.view") {
		t.Fatalf("comparison must be case-sensitive")
	}
	if rbac.Evaluate(p, rbac.PermMembersEdit) {
		t.Fatalf("missing claim must deny")
	}
}

func TestEvaluateIgnoresForeignClaimTypes(t *testing.T) {
	p := rbac.Principal{
		UserID: 3,
		Roles:  []string{rbac.RoleTrainer},
		Claims: []rbac.Claim{{Type: "Scope", Value: string(rbac.PermMembersView)}},
	}
	if rbac.Evaluate(p, rbac.PermMembersView) {
		t.Fatalf("claims of other types must not satisfy permission checks")
	}
}

func TestPrincipalHelpers(t *testing.T) {
	p := memberWith(rbac.PermBookingsCreate)
	if !p.InRole(rbac.RoleMember) {
		t.Fatalf("expected role membership")
	}
	if p.InRole("member") {
		t.Fatalf("role names are case-sensitive")
	}
	if !p.HasClaim(rbac.ClaimTypePermission, string(rbac.PermBookingsCreate)) {
		t.Fatalf("expected claim")
	}
}
