package users

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns all users with their role names.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.email, u.name, u.is_active, u.created_at, u.updated_at,
		        COALESCE(array_agg(ro.name ORDER BY ro.name) FILTER (WHERE ro.name IS NOT NULL), '{}')
		 FROM users u
		 LEFT JOIN user_roles ur ON ur.user_id = u.id
		 LEFT JOIN roles ro ON ro.id = ur.role_id
		 GROUP BY u.id
		 ORDER BY u.id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.IsActive, &user.CreatedAt, &user.UpdatedAt, &user.Roles); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
