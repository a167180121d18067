package roles

import (
	"errors"
	"time"

	"github.com/vitagym/vitagym/internal/rbac"
)

// ErrProtectedRole indicates an attempt to rename or delete the protected
// SuperAdmin role.
var ErrProtectedRole = errors.New("roles: protected role cannot be modified")

// ErrRoleHasUsers indicates a delete was blocked because users still hold
// the role.
var ErrRoleHasUsers = errors.New("roles: role has assigned users")

// RoleSummary is a role with the affordances the management surface needs.
type RoleSummary struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UsersCount  int       `json:"usersCount"`
	CanEdit     bool      `json:"canEdit"`
	CanDelete   bool      `json:"canDelete"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RoleDetail extends the summary with the role's granted permissions.
type RoleDetail struct {
	RoleSummary
	Permissions []rbac.Permission `json:"permissions"`
}
