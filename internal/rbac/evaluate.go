package rbac

import "strings"

// Principal is the authenticated caller under evaluation: its role names
// plus the claims inherited from those roles. It is materialized per
// request by the identity collaborator and never mutated here.
type Principal struct {
	UserID int64
	Roles  []string
	Claims []Claim
}

// InRole reports role membership by exact name.
func (p Principal) InRole(name string) bool {
	for _, r := range p.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// HasClaim reports whether the principal carries a claim with the exact
// type and value.
func (p Principal) HasClaim(claimType, value string) bool {
	for _, c := range p.Claims {
		if c.Type == claimType && c.Value == value {
			return true
		}
	}
	return false
}

// Evaluate decides whether the principal holds the required permission.
// A blank requirement fails closed. SuperAdmin membership allows
// unconditionally, before any claim check. Otherwise the principal must
// carry a permission claim matching the requirement exactly; there is no
// wildcard or prefix matching, and comparison is case-sensitive.
//
// Evaluate is a pure function over its arguments and safe for concurrent
// use from any number of requests.
func Evaluate(p Principal, required Permission) bool {
	if strings.TrimSpace(string(required)) == "" {
		return false
	}
	if p.InRole(RoleSuperAdmin) {
		return true
	}
	return p.HasClaim(ClaimTypePermission, string(required))
}
