package cancellation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/estoquecore/estoque-backend/internal/apperr"
	"github.com/estoquecore/estoque-backend/internal/modules/stock"
	"github.com/estoquecore/estoque-backend/internal/modules/txlog"
)

const cancellationColumns = `id, order_ref, reason, status, created_by, created_at, updated_at`

const lineColumns = `id, cancellation_id, code, cancelled, returned, status, created_at, updated_at`

type postgresRepo struct{ db *sqlx.DB }

// NewPostgresRepository creates the PostgreSQL cancellation repository.
func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, c *Cancellation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cancellations (id, order_ref, reason, status, created_by)
		VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.OrderRef, c.Reason, c.Status, c.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert cancellation: %w", err)
	}

	for _, line := range c.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cancellation_lines (id, cancellation_id, code, cancelled, status)
			VALUES ($1,$2,$3,$4,$5)`,
			line.ID, c.ID, line.Code, line.Cancelled, line.Status)
		if err != nil {
			return fmt.Errorf("insert cancellation_line: %w", err)
		}
		err = txlog.InsertTx(ctx, tx, &txlog.Entry{
			Type:      txlog.TypeCancellation,
			Code:      line.Code,
			Quantity:  line.Cancelled,
			ActorID:   c.CreatedBy,
			Reference: c.OrderRef,
		})
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *postgresRepo) Get(ctx context.Context, id uuid.UUID) (*Cancellation, error) {
	c := &Cancellation{}
	err := r.db.GetContext(ctx, c,
		`SELECT `+cancellationColumns+` FROM cancellations WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("cancellation %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	err = r.db.SelectContext(ctx, &c.Lines,
		`SELECT `+lineColumns+` FROM cancellation_lines WHERE cancellation_id=$1 ORDER BY created_at`, id)
	return c, err
}

func (r *postgresRepo) GetLine(ctx context.Context, id uuid.UUID) (*CancellationLine, error) {
	line := &CancellationLine{}
	err := r.db.GetContext(ctx, line,
		`SELECT `+lineColumns+` FROM cancellation_lines WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("cancellation line %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (r *postgresRepo) List(ctx context.Context, status Status) ([]*Cancellation, error) {
	query := `SELECT ` + cancellationColumns + ` FROM cancellations`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status=$1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	var cancellations []*Cancellation
	err := r.db.SelectContext(ctx, &cancellations, query, args...)
	return cancellations, err
}

func (r *postgresRepo) ReturnToAddress(ctx context.Context, p *ReturnParams) (*CancellationLine, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// cumulative counter guard: a retried return can never push
	// returned past cancelled
	var cancellationID uuid.UUID
	var code string
	err = tx.QueryRowContext(ctx, `
		UPDATE cancellation_lines
		SET returned = returned + $1,
		    status = CASE WHEN returned + $1 = cancelled THEN 'FULLY_RETURNED' ELSE 'RETURNING' END,
		    updated_at = NOW()
		WHERE id=$2 AND returned + $1 <= cancelled
		RETURNING cancellation_id, code`,
		p.Quantity, p.LineID).Scan(&cancellationID, &code)
	if errors.Is(err, sql.ErrNoRows) {
		line, lookupErr := r.GetLine(ctx, p.LineID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		return nil, apperr.Conflict("return of %d exceeds outstanding %d on line %s",
			p.Quantity, line.Cancelled-line.Returned, p.LineID)
	}
	if err != nil {
		return nil, err
	}

	// returned stock is immediately available: on_hand, never reserved
	if err := stock.CreditAddressTx(ctx, tx, p.AddressID, code, p.Quantity); err != nil {
		return nil, err
	}

	err = txlog.InsertTx(ctx, tx, &txlog.Entry{
		Type:        txlog.TypeReturn,
		Code:        code,
		Quantity:    p.Quantity,
		Destination: stock.AddressLocation(p.AddressID).String(),
		ActorID:     p.ActorID,
		Reference:   cancellationID.String(),
	})
	if err != nil {
		return nil, err
	}

	if err := refreshCancellationStatusTx(ctx, tx, cancellationID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetLine(ctx, p.LineID)
}

func refreshCancellationStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	var total, fullyReturned, touched int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status='FULLY_RETURNED'),
		       COUNT(*) FILTER (WHERE returned > 0)
		FROM cancellation_lines WHERE cancellation_id=$1`, id).
		Scan(&total, &fullyReturned, &touched)
	if err != nil {
		return err
	}

	status := StatusAwaitingReturn
	switch {
	case total > 0 && fullyReturned == total:
		status = StatusCompleted
	case touched > 0:
		status = StatusReturning
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE cancellations SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	if err != nil {
		return fmt.Errorf("update cancellation status: %w", err)
	}
	return nil
}
