package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vitagym/vitagym/internal/platform/db"
	"github.com/vitagym/vitagym/internal/rbac"
)

// The repository is the rbac collaborator: it owns role records and their
// claim rows and is the only component that touches them directly.
var _ rbac.RoleManager = (*Repository)(nil)

// FindRoleByID resolves a role by id.
func (r *Repository) FindRoleByID(ctx context.Context, id int64) (*rbac.Role, error) {
	var role rbac.Role
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM roles WHERE id = $1`, id).Scan(&role.ID, &role.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rbac.ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// FindRoleByName resolves a role by its unique name.
func (r *Repository) FindRoleByName(ctx context.Context, name string) (*rbac.Role, error) {
	var role rbac.Role
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM roles WHERE name = $1`, name).Scan(&role.ID, &role.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rbac.ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// RoleExists reports whether a role with the given name exists.
func (r *Repository) RoleExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`, name).Scan(&exists)
	return exists, err
}

// GetClaims returns every claim attached to the role.
func (r *Repository) GetClaims(ctx context.Context, roleID int64) ([]rbac.Claim, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT claim_type, claim_value FROM role_claims WHERE role_id = $1 ORDER BY claim_type, claim_value`,
		roleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var claims []rbac.Claim
	for rows.Next() {
		var claim rbac.Claim
		if err := rows.Scan(&claim.Type, &claim.Value); err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

// WithRoleClaims runs fn inside a transaction that holds the role's row
// lock, so concurrent claim rewrites of the same role serialize and a
// failing fn leaves the stored claim set untouched.
func (r *Repository) WithRoleClaims(ctx context.Context, roleID int64, fn func(rbac.ClaimWriter) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked int64
		if err := tx.QueryRow(ctx, `SELECT id FROM roles WHERE id = $1 FOR UPDATE`, roleID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return rbac.ErrNotFound
			}
			return fmt.Errorf("identity: lock role %d: %w", roleID, err)
		}
		return fn(&claimWriter{tx: tx, roleID: roleID})
	})
}

// UsersInRole returns the ids of users holding the named role.
func (r *Repository) UsersInRole(ctx context.Context, roleName string) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ur.user_id
		 FROM user_roles ur
		 JOIN roles ro ON ro.id = ur.role_id
		 WHERE ro.name = $1
		 ORDER BY ur.user_id`,
		roleName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PrincipalFor materializes the principal for a user: its role names and
// the union of those roles' claims. Evaluation reads this snapshot only;
// it is not refreshed mid-request.
func (r *Repository) PrincipalFor(ctx context.Context, userID int64) (rbac.Principal, error) {
	principal := rbac.Principal{UserID: userID}

	roleRows, err := r.pool.Query(ctx,
		`SELECT ro.name
		 FROM user_roles ur
		 JOIN roles ro ON ro.id = ur.role_id
		 WHERE ur.user_id = $1
		 ORDER BY ro.name`,
		userID,
	)
	if err != nil {
		return rbac.Principal{}, err
	}
	defer roleRows.Close()
	for roleRows.Next() {
		var name string
		if err := roleRows.Scan(&name); err != nil {
			return rbac.Principal{}, err
		}
		principal.Roles = append(principal.Roles, name)
	}
	if err := roleRows.Err(); err != nil {
		return rbac.Principal{}, err
	}

	claimRows, err := r.pool.Query(ctx,
		`SELECT DISTINCT rc.claim_type, rc.claim_value
		 FROM role_claims rc
		 JOIN user_roles ur ON ur.role_id = rc.role_id
		 WHERE ur.user_id = $1
		 ORDER BY rc.claim_type, rc.claim_value`,
		userID,
	)
	if err != nil {
		return rbac.Principal{}, err
	}
	defer claimRows.Close()
	for claimRows.Next() {
		var claim rbac.Claim
		if err := claimRows.Scan(&claim.Type, &claim.Value); err != nil {
			return rbac.Principal{}, err
		}
		principal.Claims = append(principal.Claims, claim)
	}
	return principal, claimRows.Err()
}

type claimWriter struct {
	tx     pgx.Tx
	roleID int64
}

func (w *claimWriter) Claims(ctx context.Context) ([]rbac.Claim, error) {
	rows, err := w.tx.Query(ctx,
		`SELECT claim_type, claim_value FROM role_claims WHERE role_id = $1 ORDER BY claim_type, claim_value`,
		w.roleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var claims []rbac.Claim
	for rows.Next() {
		var claim rbac.Claim
		if err := rows.Scan(&claim.Type, &claim.Value); err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

func (w *claimWriter) AddClaim(ctx context.Context, claimType, value string) error {
	_, err := w.tx.Exec(ctx,
		`INSERT INTO role_claims (role_id, claim_type, claim_value, created_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (role_id, claim_type, claim_value) DO NOTHING`,
		w.roleID, claimType, value,
	)
	return err
}

func (w *claimWriter) RemoveClaim(ctx context.Context, claimType, value string) error {
	_, err := w.tx.Exec(ctx,
		`DELETE FROM role_claims WHERE role_id = $1 AND claim_type = $2 AND claim_value = $3`,
		w.roleID, claimType, value,
	)
	return err
}
