// Package identity implements the role and account store that the
// permission subsystem consumes. It owns role records, their claims, and
// the user-role relation; permission semantics live in internal/rbac.
package identity

import (
	"errors"
	"time"
)

// ErrDuplicateRole indicates the role name is already taken.
var ErrDuplicateRole = errors.New("identity: role name already exists")

// Role is a named permission grouping owned by the identity store.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// User is an account that can hold roles.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
