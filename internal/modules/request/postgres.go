package request

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/estoquecore/estoque-backend/internal/apperr"
	"github.com/estoquecore/estoque-backend/internal/modules/stock"
	"github.com/estoquecore/estoque-backend/internal/modules/txlog"
)

// lockTTL is how long an advisory lock stays valid; stale locks may be
// taken over by another operator.
const lockTTL = 15 * time.Minute

const lineColumns = `id, request_id, code, supplier_tag, requested, priority, available_snapshot,
	reserved, separated, status, locked_by, locked_at, created_at, updated_at`

const requestColumns = `id, request_number, status, created_by, commercial_notes, warehouse_notes,
	opened_at, separation_started_at, completed_at, updated_at`

type postgresRepo struct{ db *sqlx.DB }

// NewPostgresRepository creates the PostgreSQL request repository.
func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) CreateRequest(ctx context.Context, req *Request) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO requests (id, request_number, status, created_by, commercial_notes, opened_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		req.ID, req.RequestNumber, req.Status, req.CreatedBy, req.CommercialNotes, req.OpenedAt)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}

	for _, line := range req.Lines {
		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(on_hand - reserved), 0) FROM stock_addresses WHERE code=$1`,
			line.Code).Scan(&line.AvailableSnapshot)
		if err != nil {
			return fmt.Errorf("snapshot availability: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO request_lines
			  (id, request_id, code, supplier_tag, requested, available_snapshot, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			line.ID, req.ID, line.Code, line.SupplierTag, line.Requested,
			line.AvailableSnapshot, line.Status)
		if err != nil {
			return fmt.Errorf("insert request_line: %w", err)
		}
	}

	return tx.Commit()
}

func (r *postgresRepo) GetRequest(ctx context.Context, id uuid.UUID) (*Request, error) {
	req := &Request{}
	err := r.db.GetContext(ctx, req,
		`SELECT `+requestColumns+` FROM requests WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("request %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	err = r.db.SelectContext(ctx, &req.Lines,
		`SELECT `+lineColumns+` FROM request_lines WHERE request_id=$1 ORDER BY created_at`, id)
	return req, err
}

func (r *postgresRepo) GetLine(ctx context.Context, id uuid.UUID) (*RequestLine, error) {
	line := &RequestLine{}
	err := r.db.GetContext(ctx, line,
		`SELECT `+lineColumns+` FROM request_lines WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("request line %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (r *postgresRepo) ListQueue(ctx context.Context) ([]*Request, error) {
	var requests []*Request
	err := r.db.SelectContext(ctx, &requests, `
		SELECT `+requestColumns+` FROM requests
		WHERE status IN ($1, $2) ORDER BY opened_at`,
		RequestSubmitted, RequestInSeparation)
	return requests, err
}

func (r *postgresRepo) StartSeparation(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE requests SET status=$1, separation_started_at=NOW(), updated_at=NOW()
		WHERE id=$2 AND status=$3`,
		RequestInSeparation, id, RequestSubmitted)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return true, nil
	}

	var status RequestStatus
	err = r.db.QueryRowContext(ctx, `SELECT status FROM requests WHERE id=$1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, apperr.NotFound("request %s not found", id)
	}
	if err != nil {
		return false, err
	}
	if status == RequestInSeparation {
		// re-entrant call on an already-started request
		return false, nil
	}
	return false, apperr.Conflict("request %s cannot start separation from %s", id, status)
}

func (r *postgresRepo) ConfirmLine(ctx context.Context, p *ConfirmParams) (*RequestLine, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	line, err := lockLineTx(ctx, tx, p.LineID)
	if err != nil {
		return nil, err
	}
	if line.Status.Terminal() {
		return nil, apperr.Conflict("line %s is already %s", line.ID, line.Status)
	}
	if p.Separated < line.Separated {
		return nil, apperr.Conflict("separated quantity cannot decrease (current %d, got %d)",
			line.Separated, p.Separated)
	}
	if p.Separated > line.Reserved {
		return nil, apperr.Conflict("separated quantity %d exceeds reserved %d",
			p.Separated, line.Reserved)
	}

	delta := p.Separated - line.Separated
	if delta > 0 {
		if err := consumeAllocationsTx(ctx, tx, line, delta); err != nil {
			return nil, err
		}
		err = txlog.InsertTx(ctx, tx, &txlog.Entry{
			Type:        txlog.TypeSeparation,
			Code:        line.Code,
			Quantity:    -delta,
			Destination: "SEPARACAO",
			ActorID:     p.ActorID,
			Reference:   p.Note,
		})
		if err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE request_lines SET separated=$1, updated_at=NOW() WHERE id=$2`,
		p.Separated, line.ID)
	if err != nil {
		return nil, fmt.Errorf("update line: %w", err)
	}
	if p.Note != "" {
		_, err = tx.ExecContext(ctx, `
			UPDATE requests SET warehouse_notes = TRIM(warehouse_notes || E'\n' || $1), updated_at=NOW()
			WHERE id=$2`, p.Note, line.RequestID)
		if err != nil {
			return nil, fmt.Errorf("append note: %w", err)
		}
	}

	line.Separated = p.Separated
	if line.Status, err = RefreshLineStatusTx(ctx, tx, line.ID); err != nil {
		return nil, err
	}
	if _, err = RefreshRequestStatusTx(ctx, tx, line.RequestID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetLine(ctx, line.ID)
}

// consumeAllocationsTx consumes delta units of reserved stock at the
// addresses of the line's allocations, attributed by planConsumption.
// Allocations fully covered by the new cumulative total flip to
// SEPARATED.
func consumeAllocationsTx(ctx context.Context, tx *sql.Tx, line *RequestLine, delta int) error {
	allocs, err := AllocationSharesTx(ctx, tx, line.ID)
	if err != nil {
		return fmt.Errorf("list allocations: %w", err)
	}
	picks, shortfall := planConsumption(line.Separated, delta, allocs)
	if shortfall > 0 {
		return apperr.Conflict("allocations for line %s cover %d fewer units than confirmed",
			line.ID, shortfall)
	}
	for _, p := range picks {
		if err := stock.ConsumeReservedTx(ctx, tx, p.addressID, line.Code, p.quantity); err != nil {
			return err
		}
		if p.covered {
			_, err = tx.ExecContext(ctx,
				`UPDATE allocations SET status='SEPARATED', updated_at=NOW() WHERE id=$1`, p.allocationID)
			if err != nil {
				return fmt.Errorf("flip allocation: %w", err)
			}
		}
	}
	return nil
}

func (r *postgresRepo) RecomputeRequestStatus(ctx context.Context, id uuid.UUID) (RequestStatus, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	status, err := RefreshRequestStatusTx(ctx, tx, id)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return status, nil
}

func (r *postgresRepo) AcquireLock(ctx context.Context, lineID, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE request_lines SET locked_by=$1, locked_at=NOW()
		WHERE id=$2 AND (locked_by IS NULL OR locked_by=$1 OR locked_at < NOW() - $3::interval)`,
		userID, lineID, lockTTL.String())
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return nil
	}
	var exists bool
	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM request_lines WHERE id=$1)`, lineID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("request line %s not found", lineID)
	}
	return apperr.Conflict("line %s is locked by another operator", lineID)
}

func (r *postgresRepo) ReleaseLock(ctx context.Context, lineID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE request_lines SET locked_by=NULL, locked_at=NULL
		WHERE id=$1 AND locked_by=$2`, lineID, userID)
	return err
}

func (r *postgresRepo) AssignPriority(ctx context.Context, lineID uuid.UUID, priority int, userID uuid.UUID) (*RequestLine, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// completing the guarded action clears the advisory lock
	res, err := tx.ExecContext(ctx, `
		UPDATE request_lines
		SET priority=$1, locked_by=NULL, locked_at=NULL, updated_at=NOW()
		WHERE id=$2 AND locked_by=$3`,
		priority, lineID, userID)
	if err != nil {
		return nil, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		var exists bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM request_lines WHERE id=$1)`, lineID).Scan(&exists)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperr.NotFound("request line %s not found", lineID)
		}
		return nil, apperr.Conflict("line %s is not locked by the caller", lineID)
	}

	if _, err = RefreshLineStatusTx(ctx, tx, lineID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetLine(ctx, lineID)
}

// ── shared transaction helpers ────────────────────────────────────────────────

// lockLineTx row-locks and reads a line inside the caller's transaction.
func lockLineTx(ctx context.Context, tx *sql.Tx, lineID uuid.UUID) (*RequestLine, error) {
	line := &RequestLine{}
	err := tx.QueryRowContext(ctx, `
		SELECT id, request_id, code, requested, reserved, separated, status, priority
		FROM request_lines WHERE id=$1 FOR UPDATE`, lineID).
		Scan(&line.ID, &line.RequestID, &line.Code, &line.Requested,
			&line.Reserved, &line.Separated, &line.Status, &line.Priority)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("request line %s not found", lineID)
	}
	if err != nil {
		return nil, err
	}
	return line, nil
}

// LockLineTx exposes the row-lock read to sibling engines that compose
// their own transactions around a line (allocation, cancellation).
func LockLineTx(ctx context.Context, tx *sql.Tx, lineID uuid.UUID) (*RequestLine, error) {
	return lockLineTx(ctx, tx, lineID)
}

// RefreshLineStatusTx recomputes a line's status from current ledger
// values inside the caller's transaction and persists it when changed.
func RefreshLineStatusTx(ctx context.Context, tx *sql.Tx, lineID uuid.UUID) (LineStatus, error) {
	line, err := lockLineTx(ctx, tx, lineID)
	if err != nil {
		return "", err
	}
	if line.Status == LineCancelled {
		return line.Status, nil
	}

	facts := LineFacts{
		Requested:   line.Requested,
		Reserved:    line.Reserved,
		Separated:   line.Separated,
		HasPriority: line.Priority != nil,
	}
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(on_hand - reserved), 0) FROM stock_addresses WHERE code=$1`,
		line.Code).Scan(&facts.AvailableStock)
	if err != nil {
		return "", err
	}
	var openDemand int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(requested - reserved), 0) FROM request_lines
		WHERE code=$1 AND id<>$2 AND status IN ($3,$4,$5)`,
		line.Code, line.ID, LinePending, LineAwaitingPriority, LineReserving).
		Scan(&openDemand)
	if err != nil {
		return "", err
	}
	shortfall := line.Requested - line.Reserved
	facts.CompetingDemand = openDemand > 0 && openDemand+shortfall > facts.AvailableStock

	status := DeriveLineStatus(facts)
	if status != line.Status {
		_, err = tx.ExecContext(ctx,
			`UPDATE request_lines SET status=$1, updated_at=NOW() WHERE id=$2`, status, lineID)
		if err != nil {
			return "", fmt.Errorf("update line status: %w", err)
		}
	}
	return status, nil
}

// RefreshRequestStatusTx re-rolls the request status from its line
// statuses inside the caller's transaction, stamping completion.
func RefreshRequestStatusTx(ctx context.Context, tx *sql.Tx, requestID uuid.UUID) (RequestStatus, error) {
	var current RequestStatus
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM requests WHERE id=$1 FOR UPDATE`, requestID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.NotFound("request %s not found", requestID)
	}
	if err != nil {
		return "", err
	}
	if current == RequestCancelled || current == RequestCompleted {
		return current, nil
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT status FROM request_lines WHERE request_id=$1`, requestID)
	if err != nil {
		return "", err
	}
	var statuses []LineStatus
	for rows.Next() {
		var s LineStatus
		if err := rows.Scan(&s); err != nil {
			rows.Close()
			return "", err
		}
		statuses = append(statuses, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", err
	}

	status := RollupRequestStatus(statuses)
	if status == current {
		return status, nil
	}
	// IN_SEPARATION is entered by the explicit start action, which also
	// stamps the SLA checkpoint; the rollup never pulls a SUBMITTED
	// request forward on its own.
	if status == RequestInSeparation && current == RequestSubmitted {
		return current, nil
	}
	if status == RequestCompleted {
		_, err = tx.ExecContext(ctx, `
			UPDATE requests SET status=$1, completed_at=NOW(), updated_at=NOW() WHERE id=$2`,
			status, requestID)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE requests SET status=$1, updated_at=NOW() WHERE id=$2`, status, requestID)
	}
	if err != nil {
		return "", fmt.Errorf("update request status: %w", err)
	}
	return status, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
