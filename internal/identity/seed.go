package identity

import (
	"context"

	"github.com/vitagym/vitagym/internal/rbac"
)

// Bootstrap helpers used by the seeder. All of them are idempotent so the
// seeder can run on every deploy.

// EnsureRole creates the role if it does not exist and returns it either way.
func (r *Repository) EnsureRole(ctx context.Context, name, description string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description, created_at, updated_at)
		 VALUES ($1, $2, now(), now())
		 ON CONFLICT (name) DO UPDATE SET updated_at = roles.updated_at
		 RETURNING id, name, description, created_at, updated_at`,
		name, description,
	).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return Role{}, err
	}
	return role, nil
}

// HasPermissionClaims reports whether the role already carries any
// permission claim. The seeder only assigns defaults to untouched roles.
func (r *Repository) HasPermissionClaims(ctx context.Context, roleID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM role_claims WHERE role_id = $1 AND claim_type = $2)`,
		roleID, rbac.ClaimTypePermission,
	).Scan(&exists)
	return exists, err
}

// HasAnyUsers reports whether any account exists.
func (r *Repository) HasAnyUsers(ctx context.Context) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&exists)
	return exists, err
}

// CreateUser inserts an account with a pre-hashed password.
func (r *Repository) CreateUser(ctx context.Context, email, name, passwordHash string) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, password_hash, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, TRUE, now(), now())
		 RETURNING id, email, name, password_hash, is_active, created_at, updated_at`,
		email, name, passwordHash,
	).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// AssignRole links a user to a role.
func (r *Repository) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id, created_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id, role_id) DO NOTHING`,
		userID, roleID,
	)
	return err
}
