package txlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const maxPageSize = 500

type postgresRepo struct{ db *sqlx.DB }

// NewPostgresRepository creates the PostgreSQL transaction log reader.
func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) List(ctx context.Context, limit int) ([]*Entry, error) {
	var entries []*Entry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, type, code, quantity, origin, destination, actor_id, reference, created_at
		FROM stock_transactions ORDER BY created_at DESC LIMIT $1`, clamp(limit))
	return entries, err
}

func (r *postgresRepo) ListByCode(ctx context.Context, code string, limit int) ([]*Entry, error) {
	var entries []*Entry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, type, code, quantity, origin, destination, actor_id, reference, created_at
		FROM stock_transactions WHERE code=$1 ORDER BY created_at DESC LIMIT $2`, code, clamp(limit))
	return entries, err
}

func clamp(limit int) int {
	if limit <= 0 || limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

// InsertTx appends one entry inside the caller's running transaction.
// Every quantity-affecting write path in the system calls this exactly
// once per logical event.
func InsertTx(ctx context.Context, tx *sql.Tx, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO stock_transactions
		  (id, type, code, quantity, origin, destination, actor_id, reference, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, e.Type, e.Code, e.Quantity, e.Origin, e.Destination, e.ActorID, e.Reference, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert stock_transaction: %w", err)
	}
	return nil
}
