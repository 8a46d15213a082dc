package auth

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines data access for users, sessions and role permissions.
type Repository interface {
	// GetUserByEmail retrieves a user for credential checking.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetUserByID retrieves a user by id.
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)

	// CreateSession records a newly issued session.
	CreateSession(ctx context.Context, s *Session) error

	// GetSession retrieves a session by id.
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)

	// RevokeSession marks a session revoked.
	RevokeSession(ctx context.Context, id uuid.UUID) error

	// ListPermissions returns the permission set granted to a role.
	ListPermissions(ctx context.Context, role Role) ([]string, error)
}
