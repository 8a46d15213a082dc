package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/estoquecore/estoque-backend/internal/apperr"
)

type postgresRepo struct{ db *sqlx.DB }

// NewPostgresRepository creates the PostgreSQL catalog repository.
func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) GetByCode(ctx context.Context, code string) (*Product, error) {
	p := &Product{}
	err := r.db.GetContext(ctx, p, `
		SELECT code, description, unit, supplier, is_active, created_at, updated_at
		FROM products WHERE code=$1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("product %s not found", code)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) Search(ctx context.Context, term string, limit int) ([]*Product, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	var products []*Product
	err := r.db.SelectContext(ctx, &products, `
		SELECT code, description, unit, supplier, is_active, created_at, updated_at
		FROM products
		WHERE is_active AND (code ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		ORDER BY code LIMIT $2`, term, limit)
	return products, err
}
