package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitagym/vitagym/internal/rbac"
)

// Repository provides PostgreSQL backed persistence for roles and users.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRoles returns all roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRole fetches a role by ID.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1`, id,
	).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, rbac.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// CreateRole inserts a new role. Duplicate names map to ErrDuplicateRole.
func (r *Repository) CreateRole(ctx context.Context, name, description string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description, created_at, updated_at)
		 VALUES ($1, $2, now(), now())
		 RETURNING id, name, description, created_at, updated_at`,
		strings.TrimSpace(name), strings.TrimSpace(description),
	).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Role{}, ErrDuplicateRole
		}
		return Role{}, err
	}
	return role, nil
}

// RenameRole updates the role name. Duplicate names map to
// ErrDuplicateRole, missing roles to rbac.ErrNotFound.
func (r *Repository) RenameRole(ctx context.Context, id int64, name string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`UPDATE roles SET name = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING id, name, description, created_at, updated_at`,
		id, strings.TrimSpace(name),
	).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, rbac.ErrNotFound
		}
		if isUniqueViolation(err) {
			return Role{}, ErrDuplicateRole
		}
		return Role{}, err
	}
	return role, nil
}

// DeleteRole removes a role and its claims. Returns rbac.ErrNotFound when
// nothing was deleted.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return rbac.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
