package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/vitagym/vitagym/internal/identity"
	"github.com/vitagym/vitagym/internal/rbac"
)

// RepositoryPort defines the role records access the service needs.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]identity.Role, error)
	GetRole(ctx context.Context, id int64) (identity.Role, error)
	CreateRole(ctx context.Context, name, description string) (identity.Role, error)
	RenameRole(ctx context.Context, id int64, name string) (identity.Role, error)
	DeleteRole(ctx context.Context, id int64) error
	RoleExists(ctx context.Context, name string) (bool, error)
}

// PermissionStorePort is the permission store surface the service consumes.
type PermissionStorePort interface {
	PermissionView(ctx context.Context, roleID int64) (*rbac.PermissionView, error)
	SetPermissions(ctx context.Context, roleID int64, requested []rbac.Permission) error
	ListPermissions(ctx context.Context, roleName string) ([]rbac.Permission, error)
	CountMembers(ctx context.Context, roleName string) (int, error)
	HasMembers(ctx context.Context, roleName string) (bool, error)
}

// Service handles role management business rules: the protected-role and
// has-members guards live here, not in handlers.
type Service struct {
	repo  RepositoryPort
	store PermissionStorePort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, store PermissionStorePort) *Service {
	return &Service{repo: repo, store: store}
}

// List returns all roles with member counts and edit/delete affordances.
func (s *Service) List(ctx context.Context) ([]RoleSummary, error) {
	records, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]RoleSummary, 0, len(records))
	for _, record := range records {
		count, err := s.store.CountMembers(ctx, record.Name)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summarize(record, count))
	}
	return summaries, nil
}

// Get returns one role with its granted permissions.
func (s *Service) Get(ctx context.Context, id int64) (*RoleDetail, error) {
	record, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountMembers(ctx, record.Name)
	if err != nil {
		return nil, err
	}
	perms, err := s.store.ListPermissions(ctx, record.Name)
	if err != nil {
		return nil, err
	}
	if perms == nil {
		perms = []rbac.Permission{}
	}
	return &RoleDetail{RoleSummary: summarize(record, count), Permissions: perms}, nil
}

// Create inserts a new role after checking name availability.
func (s *Service) Create(ctx context.Context, name, description string) (RoleSummary, error) {
	name = strings.TrimSpace(name)
	exists, err := s.repo.RoleExists(ctx, name)
	if err != nil {
		return RoleSummary{}, err
	}
	if exists {
		return RoleSummary{}, identity.ErrDuplicateRole
	}
	record, err := s.repo.CreateRole(ctx, name, description)
	if err != nil {
		return RoleSummary{}, err
	}
	return summarize(record, 0), nil
}

// Rename changes a role's name. The protected role cannot be renamed.
func (s *Service) Rename(ctx context.Context, id int64, name string) (RoleSummary, error) {
	record, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return RoleSummary{}, err
	}
	if record.Name == rbac.RoleSuperAdmin {
		return RoleSummary{}, ErrProtectedRole
	}
	name = strings.TrimSpace(name)
	if name != record.Name {
		exists, err := s.repo.RoleExists(ctx, name)
		if err != nil {
			return RoleSummary{}, err
		}
		if exists {
			return RoleSummary{}, identity.ErrDuplicateRole
		}
	}
	updated, err := s.repo.RenameRole(ctx, id, name)
	if err != nil {
		return RoleSummary{}, err
	}
	count, err := s.store.CountMembers(ctx, updated.Name)
	if err != nil {
		return RoleSummary{}, err
	}
	return summarize(updated, count), nil
}

// Delete removes a role. The protected role and roles with members are
// refused.
func (s *Service) Delete(ctx context.Context, id int64) error {
	record, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if record.Name == rbac.RoleSuperAdmin {
		return ErrProtectedRole
	}
	count, err := s.store.CountMembers(ctx, record.Name)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d user(s) assigned", ErrRoleHasUsers, count)
	}
	return s.repo.DeleteRole(ctx, id)
}

// PermissionView returns the grouped catalog with the role's selections.
func (s *Service) PermissionView(ctx context.Context, id int64) (*rbac.PermissionView, error) {
	return s.store.PermissionView(ctx, id)
}

// SetPermissions replaces the role's permission set. The store substitutes
// the full catalog for the protected role.
func (s *Service) SetPermissions(ctx context.Context, id int64, requested []rbac.Permission) error {
	return s.store.SetPermissions(ctx, id, requested)
}

func summarize(record identity.Role, usersCount int) RoleSummary {
	protected := record.Name == rbac.RoleSuperAdmin
	return RoleSummary{
		ID:          record.ID,
		Name:        record.Name,
		Description: record.Description,
		UsersCount:  usersCount,
		CanEdit:     !protected,
		CanDelete:   !protected && usersCount == 0,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}
