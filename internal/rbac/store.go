package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Store reads and atomically rewrites role permission claims. It is the
// sole writer of permission claims; no other component mutates them.
type Store struct {
	manager RoleManager
	logger  *slog.Logger
}

// NewStore constructs a Store over the identity collaborator.
func NewStore(manager RoleManager, logger *slog.Logger) *Store {
	return &Store{manager: manager, logger: logger}
}

// PermissionOption is one catalog entry flagged with the role's current
// selection state.
type PermissionOption struct {
	Name        Permission `json:"name"`
	DisplayName string     `json:"displayName"`
	Selected    bool       `json:"selected"`
}

// PermissionView is the full catalog grouped by module, each entry marked
// selected when the role currently holds a claim for it.
type PermissionView struct {
	RoleID   int64                        `json:"roleId"`
	RoleName string                       `json:"roleName"`
	Modules  map[Module][]PermissionOption `json:"modules"`
}

// PermissionView builds the grouped catalog view for a role. Returns
// ErrNotFound when the role id does not resolve.
func (s *Store) PermissionView(ctx context.Context, roleID int64) (*PermissionView, error) {
	role, err := s.manager.FindRoleByID(ctx, roleID)
	if err != nil {
		return nil, err
	}

	claims, err := s.manager.GetClaims(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	selected := permissionSet(claims)

	view := &PermissionView{
		RoleID:   role.ID,
		RoleName: role.Name,
		Modules:  make(map[Module][]PermissionOption, len(Modules())),
	}
	grouped := ByModule()
	for _, module := range Modules() {
		perms := grouped[module]
		options := make([]PermissionOption, 0, len(perms))
		for _, perm := range perms {
			_, isSelected := selected[string(perm)]
			options = append(options, PermissionOption{
				Name:        perm,
				DisplayName: perm.DisplayName(),
				Selected:    isSelected,
			})
		}
		view.Modules[module] = options
	}
	return view, nil
}

// SetPermissions replaces the role's permission claims so the resulting
// set equals exactly the requested set. The SuperAdmin role is always
// rewritten to the full catalog regardless of the request. The rewrite is
// all-or-nothing: it runs under the role manager's per-role claim lock,
// and a failure partway surfaces as ErrRewriteFailed with the previous
// set intact.
func (s *Store) SetPermissions(ctx context.Context, roleID int64, requested []Permission) error {
	role, err := s.manager.FindRoleByID(ctx, roleID)
	if err != nil {
		return err
	}

	if role.Name == RoleSuperAdmin {
		requested = All()
	}
	want := normalizeRequested(requested)

	// Abandoning a half-applied rewrite would leave the role with a mix
	// of old and new grants, so once the mutation starts the caller's
	// cancellation no longer applies.
	ctx = context.WithoutCancel(ctx)

	err = s.manager.WithRoleClaims(ctx, role.ID, func(w ClaimWriter) error {
		current, err := w.Claims(ctx)
		if err != nil {
			return err
		}
		for _, claim := range current {
			if claim.Type != ClaimTypePermission {
				continue
			}
			if err := w.RemoveClaim(ctx, claim.Type, claim.Value); err != nil {
				return fmt.Errorf("remove claim %q: %w", claim.Value, err)
			}
		}
		for _, perm := range want {
			if err := w.AddClaim(ctx, ClaimTypePermission, string(perm)); err != nil {
				return fmt.Errorf("add claim %q: %w", perm, err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		if s.logger != nil {
			s.logger.Error("permission rewrite failed",
				slog.Int64("role_id", role.ID),
				slog.String("role", role.Name),
				slog.Any("error", err),
			)
		}
		return fmt.Errorf("%w: role %q: %v", ErrRewriteFailed, role.Name, err)
	}
	return nil
}

// ListPermissions returns the permission claim values for the named role.
// An unknown role yields an empty slice, not an error.
func (s *Store) ListPermissions(ctx context.Context, roleName string) ([]Permission, error) {
	role, err := s.manager.FindRoleByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	claims, err := s.manager.GetClaims(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	perms := make([]Permission, 0, len(claims))
	for _, claim := range claims {
		if claim.Type == ClaimTypePermission {
			perms = append(perms, Permission(claim.Value))
		}
	}
	return perms, nil
}

// CountMembers reports how many users hold the named role.
func (s *Store) CountMembers(ctx context.Context, roleName string) (int, error) {
	if strings.TrimSpace(roleName) == "" {
		return 0, nil
	}
	users, err := s.manager.UsersInRole(ctx, roleName)
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

// HasMembers reports whether any user holds the named role. Roles with
// members cannot be deleted.
func (s *Store) HasMembers(ctx context.Context, roleName string) (bool, error) {
	count, err := s.CountMembers(ctx, roleName)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func permissionSet(claims []Claim) map[string]struct{} {
	set := make(map[string]struct{}, len(claims))
	for _, claim := range claims {
		if claim.Type == ClaimTypePermission {
			set[claim.Value] = struct{}{}
		}
	}
	return set
}

// normalizeRequested trims blanks and drops duplicates while keeping the
// caller's order. Unknown values are kept: claims may legitimately
// reference permissions from another build of the catalog.
func normalizeRequested(requested []Permission) []Permission {
	seen := make(map[Permission]struct{}, len(requested))
	out := make([]Permission, 0, len(requested))
	for _, perm := range requested {
		trimmed := Permission(strings.TrimSpace(string(perm)))
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
