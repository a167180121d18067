package rbac

import (
	"context"
	"errors"
)

// ErrNotFound indicates that the requested role does not exist.
var ErrNotFound = errors.New("rbac: role not found")

// ErrRewriteFailed indicates a permission rewrite failed after it began.
// The transactional role manager rolls the rewrite back, so the role still
// holds its previous permission set when this is returned; callers should
// re-read and retry rather than assume partial application.
var ErrRewriteFailed = errors.New("rbac: permission rewrite failed")

// Role is the projection of the identity collaborator's role record the
// permission store works with.
type Role struct {
	ID   int64
	Name string
}

// Claim is a stored (type, value) fact attached to a role. Permission
// grants are claims of type ClaimTypePermission.
type Claim struct {
	Type  string
	Value string
}

// RoleManager is the narrow surface the permission store consumes from the
// identity collaborator. Implementations own role records and their
// claims; the store never touches storage directly.
type RoleManager interface {
	FindRoleByID(ctx context.Context, id int64) (*Role, error)
	FindRoleByName(ctx context.Context, name string) (*Role, error)
	RoleExists(ctx context.Context, name string) (bool, error)
	GetClaims(ctx context.Context, roleID int64) ([]Claim, error)
	// WithRoleClaims runs fn with exclusive write access to one role's
	// claims. Concurrent calls against the same role serialize; if fn
	// returns an error nothing it did is kept.
	WithRoleClaims(ctx context.Context, roleID int64, fn func(ClaimWriter) error) error
	UsersInRole(ctx context.Context, roleName string) ([]int64, error)
}

// ClaimWriter mutates a single role's claims inside WithRoleClaims.
type ClaimWriter interface {
	Claims(ctx context.Context) ([]Claim, error)
	AddClaim(ctx context.Context, claimType, value string) error
	RemoveClaim(ctx context.Context, claimType, value string) error
}
