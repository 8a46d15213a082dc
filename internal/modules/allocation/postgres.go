package allocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/estoquecore/estoque-backend/internal/apperr"
	"github.com/estoquecore/estoque-backend/internal/modules/request"
	"github.com/estoquecore/estoque-backend/internal/modules/stock"
	"github.com/estoquecore/estoque-backend/internal/modules/txlog"
)

const allocationColumns = `id, line_id, address_id, code, quantity, returned, status,
	actor_id, destination, created_at, updated_at`

type postgresRepo struct{ db *sqlx.DB }

// NewPostgresRepository creates the PostgreSQL allocation repository.
func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Reserve(ctx context.Context, p *ReserveParams) (*Allocation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	line, err := request.LockLineTx(ctx, tx, p.LineID)
	if err != nil {
		return nil, err
	}
	if line.Status.Terminal() {
		return nil, apperr.Conflict("line %s is already %s", line.ID, line.Status)
	}
	if p.Quantity > line.Requested-line.Reserved {
		return nil, apperr.Conflict("line %s has only %d units left to reserve",
			line.ID, line.Requested-line.Reserved)
	}

	// one conditional update: check and increment cannot be split
	if err := stock.ReserveAddressTx(ctx, tx, p.AddressID, line.Code, p.Quantity); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE request_lines SET reserved = reserved + $1, updated_at=NOW() WHERE id=$2`,
		p.Quantity, line.ID)
	if err != nil {
		return nil, fmt.Errorf("update line reserved: %w", err)
	}

	a := &Allocation{
		ID:          uuid.New(),
		LineID:      line.ID,
		AddressID:   p.AddressID,
		Code:        line.Code,
		Quantity:    p.Quantity,
		Status:      StatusReserved,
		ActorID:     p.ActorID,
		Destination: "SEPARACAO",
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO allocations (id, line_id, address_id, code, quantity, status, actor_id, destination)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.LineID, a.AddressID, a.Code, a.Quantity, a.Status, a.ActorID, a.Destination)
	if err != nil {
		return nil, fmt.Errorf("insert allocation: %w", err)
	}

	err = txlog.InsertTx(ctx, tx, &txlog.Entry{
		Type:        txlog.TypeReservation,
		Code:        line.Code,
		Quantity:    p.Quantity,
		Origin:      stock.AddressLocation(p.AddressID).String(),
		Destination: line.RequestID.String(),
		ActorID:     p.ActorID,
	})
	if err != nil {
		return nil, err
	}

	if _, err = request.RefreshLineStatusTx(ctx, tx, line.ID); err != nil {
		return nil, err
	}
	if _, err = request.RefreshRequestStatusTx(ctx, tx, line.RequestID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.get(ctx, a.ID)
}

func (r *postgresRepo) Release(ctx context.Context, allocationID, actorID uuid.UUID) (*Allocation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	a := &Allocation{}
	err = tx.QueryRowContext(ctx, `
		SELECT id, line_id, address_id, code, quantity, returned, status
		FROM allocations WHERE id=$1 FOR UPDATE`, allocationID).
		Scan(&a.ID, &a.LineID, &a.AddressID, &a.Code, &a.Quantity, &a.Returned, &a.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("allocation %s not found", allocationID)
	}
	if err != nil {
		return nil, err
	}
	if a.Status != StatusReserved {
		return nil, apperr.Conflict("allocation %s is %s and cannot be released", a.ID, a.Status)
	}

	line, err := request.LockLineTx(ctx, tx, a.LineID)
	if err != nil {
		return nil, err
	}
	// picks are attributed to allocations in creation order; an
	// allocation with a consumed share holds stock that already left
	// the shelf and cannot go back to available
	shares, err := request.AllocationSharesTx(ctx, tx, a.LineID)
	if err != nil {
		return nil, err
	}
	if consumed := request.ConsumedShare(line.Separated, shares, a.ID); consumed > 0 {
		return nil, apperr.Conflict("allocation %s already had %d units picked", a.ID, consumed)
	}

	if err := stock.ReleaseReservedTx(ctx, tx, a.AddressID, a.Code, a.Quantity); err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE request_lines SET reserved = reserved - $1, updated_at=NOW() WHERE id=$2`,
		a.Quantity, a.LineID)
	if err != nil {
		return nil, fmt.Errorf("update line reserved: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE allocations SET status=$1, returned=quantity, updated_at=NOW() WHERE id=$2`,
		StatusReturned, a.ID)
	if err != nil {
		return nil, fmt.Errorf("update allocation: %w", err)
	}

	err = txlog.InsertTx(ctx, tx, &txlog.Entry{
		Type:        txlog.TypeReservation,
		Code:        a.Code,
		Quantity:    -a.Quantity,
		Origin:      line.RequestID.String(),
		Destination: stock.AddressLocation(a.AddressID).String(),
		ActorID:     actorID,
		Reference:   "liberacao de reserva",
	})
	if err != nil {
		return nil, err
	}

	if _, err = request.RefreshLineStatusTx(ctx, tx, a.LineID); err != nil {
		return nil, err
	}
	if _, err = request.RefreshRequestStatusTx(ctx, tx, line.RequestID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.get(ctx, a.ID)
}

func (r *postgresRepo) ListByLine(ctx context.Context, lineID uuid.UUID) ([]*Allocation, error) {
	var allocations []*Allocation
	err := r.db.SelectContext(ctx, &allocations, `
		SELECT `+allocationColumns+` FROM allocations
		WHERE line_id=$1 ORDER BY created_at`, lineID)
	return allocations, err
}

func (r *postgresRepo) get(ctx context.Context, id uuid.UUID) (*Allocation, error) {
	a := &Allocation{}
	err := r.db.GetContext(ctx, a,
		`SELECT `+allocationColumns+` FROM allocations WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	return a, nil
}
