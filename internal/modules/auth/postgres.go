package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/estoquecore/estoque-backend/internal/apperr"
)

type postgresRepo struct{ db *sqlx.DB }

// NewPostgresRepository creates the PostgreSQL auth repository.
func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u := &User{}
	err := r.db.GetContext(ctx, u, `
		SELECT id, email, password_hash, name, role, is_active, is_approved, created_at, updated_at
		FROM users WHERE email=$1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *postgresRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u := &User{}
	err := r.db.GetContext(ctx, u, `
		SELECT id, email, password_hash, name, role, is_active, is_approved, created_at, updated_at
		FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *postgresRepo) CreateSession(ctx context.Context, s *Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, revoked, expires_at) VALUES ($1,$2,$3,$4)`,
		s.ID, s.UserID, s.Revoked, s.ExpiresAt)
	return err
}

func (r *postgresRepo) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	s := &Session{}
	err := r.db.GetContext(ctx, s, `
		SELECT id, user_id, revoked, expires_at, created_at FROM sessions WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("session not found")
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresRepo) RevokeSession(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET revoked=TRUE WHERE id=$1`, id)
	return err
}

func (r *postgresRepo) ListPermissions(ctx context.Context, role Role) ([]string, error) {
	var permissions []string
	err := r.db.SelectContext(ctx, &permissions, `
		SELECT permission FROM role_permissions WHERE role=$1 ORDER BY permission`, role)
	return permissions, err
}
