package stock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/estoquecore/estoque-backend/internal/apperr"
	"github.com/estoquecore/estoque-backend/internal/modules/txlog"
)

type postgresRepo struct{ db *sqlx.DB }

// NewPostgresRepository creates the PostgreSQL stock repository.
func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

const addressColumns = `id, rua, coluna, nivel, posicao, code, on_hand, reserved, created_at, updated_at`

func (r *postgresRepo) GetAddress(ctx context.Context, id uuid.UUID) (*StockAddress, error) {
	a := &StockAddress{}
	err := r.db.GetContext(ctx, a,
		`SELECT `+addressColumns+` FROM stock_addresses WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("address %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *postgresRepo) ListAddressesWithStock(ctx context.Context, code string) ([]*StockAddress, error) {
	var addresses []*StockAddress
	err := r.db.SelectContext(ctx, &addresses, `
		SELECT `+addressColumns+` FROM stock_addresses
		WHERE code=$1 AND on_hand - reserved > 0
		ORDER BY rua, coluna, nivel, posicao`, code)
	return addresses, err
}

func (r *postgresRepo) ListAddressesForCode(ctx context.Context, code string) ([]*StockAddress, error) {
	var addresses []*StockAddress
	err := r.db.SelectContext(ctx, &addresses, `
		SELECT `+addressColumns+` FROM stock_addresses
		WHERE code=$1
		ORDER BY rua, coluna, nivel, posicao`, code)
	return addresses, err
}

func (r *postgresRepo) ListVirtualBalances(ctx context.Context, code string) ([]*VirtualBalance, error) {
	var balances []*VirtualBalance
	err := r.db.SelectContext(ctx, &balances, `
		SELECT code, location, quantity, updated_at
		FROM virtual_balances WHERE code=$1 ORDER BY location`, code)
	return balances, err
}

func (r *postgresRepo) TotalAvailable(ctx context.Context, code string) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(on_hand - reserved), 0) FROM stock_addresses WHERE code=$1`,
		code).Scan(&total)
	return total, err
}

func (r *postgresRepo) Transfer(ctx context.Context, p *TransferParams) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	switch p.Origin.Kind {
	case KindAddress:
		if err := debitAddressTx(ctx, tx, p.Origin.AddressID, p.Code, p.Quantity); err != nil {
			return err
		}
	case KindVirtual:
		if err := debitVirtualTx(ctx, tx, p.Code, p.Origin.Name, p.Quantity); err != nil {
			return err
		}
	}

	switch p.Destination.Kind {
	case KindAddress:
		if err := CreditAddressTx(ctx, tx, p.Destination.AddressID, p.Code, p.Quantity); err != nil {
			return err
		}
	case KindVirtual:
		if err := creditVirtualTx(ctx, tx, p.Code, p.Destination.Name, p.Quantity); err != nil {
			return err
		}
	case KindExternal:
		// terminal sink, nothing to credit
	}

	entry := &txlog.Entry{
		Type:        txlog.TypeTransfer,
		Code:        p.Code,
		Quantity:    p.Quantity,
		Origin:      p.Origin.String(),
		Destination: p.Destination.String(),
		ActorID:     p.ActorID,
		Reference:   p.Note,
	}
	if p.Destination.Kind == KindExternal {
		entry.Quantity = -p.Quantity
		entry.Reference = p.Destination.Reference
	}
	if err := txlog.InsertTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *postgresRepo) SetVirtualBalance(ctx context.Context, p *RecountParams) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx, `
		SELECT quantity FROM virtual_balances WHERE code=$1 AND location=$2 FOR UPDATE`,
		p.Code, p.Location).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	delta := p.Quantity - current
	if delta == 0 {
		return 0, nil
	}

	if err := upsertVirtualTx(ctx, tx, p.Code, p.Location, p.Quantity); err != nil {
		return 0, err
	}
	err = txlog.InsertTx(ctx, tx, &txlog.Entry{
		Type:        txlog.TypeAdjustment,
		Code:        p.Code,
		Quantity:    delta,
		Destination: p.Location,
		ActorID:     p.ActorID,
		Reference:   p.Reason,
	})
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return delta, nil
}

func (r *postgresRepo) Receive(ctx context.Context, p *ReceiptParams) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := CreditAddressTx(ctx, tx, p.AddressID, p.Code, p.Quantity); err != nil {
		return err
	}
	err = txlog.InsertTx(ctx, tx, &txlog.Entry{
		Type:        txlog.TypeReceipt,
		Code:        p.Code,
		Quantity:    p.Quantity,
		Destination: AddressLocation(p.AddressID).String(),
		ActorID:     p.ActorID,
		Reference:   p.Reference,
	})
	if err != nil {
		return err
	}
	return tx.Commit()
}

// ── shared ledger guards ──────────────────────────────────────────────────────
//
// The guards below are the only writes that touch address quantities.
// Each one is a single conditional UPDATE so the availability check and
// the mutation cannot be split by a concurrent writer; a zero row count
// means the guard lost and the caller's transaction must abort.

// ReserveAddressTx increments reserved, guarded by available >= qty.
func ReserveAddressTx(ctx context.Context, tx *sql.Tx, addressID uuid.UUID, code string, qty int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE stock_addresses SET reserved = reserved + $1, updated_at = NOW()
		WHERE id=$2 AND code=$3 AND on_hand - reserved >= $1`,
		qty, addressID, code)
	if err != nil {
		return fmt.Errorf("reserve address: %w", err)
	}
	return guardResult(ctx, tx, res, addressID, code,
		"insufficient available quantity at address")
}

// ConsumeReservedTx removes picked stock: on_hand and reserved both
// decrease, guarded by reserved >= qty.
func ConsumeReservedTx(ctx context.Context, tx *sql.Tx, addressID uuid.UUID, code string, qty int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE stock_addresses
		SET on_hand = on_hand - $1, reserved = reserved - $1, updated_at = NOW()
		WHERE id=$2 AND code=$3 AND reserved >= $1`,
		qty, addressID, code)
	if err != nil {
		return fmt.Errorf("consume reserved: %w", err)
	}
	return guardResult(ctx, tx, res, addressID, code,
		"reserved quantity at address is below the requested amount")
}

// ReleaseReservedTx gives committed quantity back to available, guarded
// by reserved >= qty.
func ReleaseReservedTx(ctx context.Context, tx *sql.Tx, addressID uuid.UUID, code string, qty int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE stock_addresses SET reserved = reserved - $1, updated_at = NOW()
		WHERE id=$2 AND code=$3 AND reserved >= $1`,
		qty, addressID, code)
	if err != nil {
		return fmt.Errorf("release reserved: %w", err)
	}
	return guardResult(ctx, tx, res, addressID, code,
		"reserved quantity at address is below the requested amount")
}

// CreditAddressTx increments on_hand at the slot identified by
// addressID, creating the (coordinates, code) ledger row when the slot
// does not yet hold the code. Returned and transferred stock is
// immediately available, never reserved.
func CreditAddressTx(ctx context.Context, tx *sql.Tx, addressID uuid.UUID, code string, qty int) error {
	var rua string
	var coluna, nivel, posicao int
	err := tx.QueryRowContext(ctx,
		`SELECT rua, coluna, nivel, posicao FROM stock_addresses WHERE id=$1`,
		addressID).Scan(&rua, &coluna, &nivel, &posicao)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("address %s not found", addressID)
	}
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_addresses (id, rua, coluna, nivel, posicao, code, on_hand, reserved)
		VALUES ($1,$2,$3,$4,$5,$6,$7,0)
		ON CONFLICT (rua, coluna, nivel, posicao, code)
		DO UPDATE SET on_hand = stock_addresses.on_hand + EXCLUDED.on_hand, updated_at = NOW()`,
		uuid.New(), rua, coluna, nivel, posicao, code, qty)
	if err != nil {
		return fmt.Errorf("credit address: %w", err)
	}
	return nil
}

func debitAddressTx(ctx context.Context, tx *sql.Tx, addressID uuid.UUID, code string, qty int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE stock_addresses SET on_hand = on_hand - $1, updated_at = NOW()
		WHERE id=$2 AND code=$3 AND on_hand - reserved >= $1`,
		qty, addressID, code)
	if err != nil {
		return fmt.Errorf("debit address: %w", err)
	}
	return guardResult(ctx, tx, res, addressID, code,
		"insufficient available quantity at origin address")
}

func debitVirtualTx(ctx context.Context, tx *sql.Tx, code, location string, qty int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE virtual_balances SET quantity = quantity - $1, updated_at = NOW()
		WHERE code=$2 AND location=$3 AND quantity >= $1`,
		qty, code, location)
	if err != nil {
		return fmt.Errorf("debit virtual balance: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.Conflict("insufficient balance of %s at %s", code, location)
	}
	return nil
}

func creditVirtualTx(ctx context.Context, tx *sql.Tx, code, location string, qty int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO virtual_balances (code, location, quantity)
		VALUES ($1,$2,$3)
		ON CONFLICT (code, location)
		DO UPDATE SET quantity = virtual_balances.quantity + EXCLUDED.quantity, updated_at = NOW()`,
		code, location, qty)
	if err != nil {
		return fmt.Errorf("credit virtual balance: %w", err)
	}
	return nil
}

func upsertVirtualTx(ctx context.Context, tx *sql.Tx, code, location string, qty int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO virtual_balances (code, location, quantity)
		VALUES ($1,$2,$3)
		ON CONFLICT (code, location)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()`,
		code, location, qty)
	if err != nil {
		return fmt.Errorf("set virtual balance: %w", err)
	}
	return nil
}

// guardResult classifies a zero-row conditional update: a missing
// ledger row is NotFound, a present row that failed the guard is a
// Conflict the caller can retry after refreshing.
func guardResult(ctx context.Context, tx *sql.Tx, res sql.Result, addressID uuid.UUID, code, conflictMsg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM stock_addresses WHERE id=$1 AND code=$2)`,
		addressID, code).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("address %s does not hold code %s", addressID, code)
	}
	return apperr.Conflict("%s %s", conflictMsg, addressID)
}
