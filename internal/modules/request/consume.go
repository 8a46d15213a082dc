package request

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// AllocationShare is one reservation row as the consumption walk sees
// it: creation-ordered, with its address and whether it has already
// flipped to SEPARATED.
type AllocationShare struct {
	ID        uuid.UUID
	AddressID uuid.UUID
	Quantity  int
	Separated bool
}

// consumptionPick is one planned consumption at an allocation's address.
type consumptionPick struct {
	allocationID uuid.UUID
	addressID    uuid.UUID
	quantity     int
	covered      bool // fully covered by the new total; flip to SEPARATED
}

// planConsumption attributes delta newly separated units to the line's
// allocations in creation order. How much of each allocation was
// already picked is derived from the line's previous separated total
// against the allocation prefix sums, so no per-allocation counter can
// drift. Returns the picks and the shortfall left when the allocations
// cannot cover the delta.
func planConsumption(separated, delta int, allocs []AllocationShare) ([]consumptionPick, int) {
	remaining := delta
	prefix := 0
	newTotal := separated + delta
	var picks []consumptionPick
	for _, a := range allocs {
		alreadyPicked := clampInt(separated-prefix, 0, a.Quantity)
		pickNow := minInt(remaining, a.Quantity-alreadyPicked)
		prefix += a.Quantity
		if pickNow <= 0 {
			continue
		}
		picks = append(picks, consumptionPick{
			allocationID: a.ID,
			addressID:    a.AddressID,
			quantity:     pickNow,
			covered:      prefix <= newTotal && !a.Separated,
		})
		remaining -= pickNow
		if remaining == 0 {
			break
		}
	}
	return picks, remaining
}

// ConsumedShare reports how many units of one allocation the line's
// cumulative separated total has already consumed, attributing picks in
// creation order, the same attribution the confirmation walk applies.
// An allocation with a non-zero consumed share must not be released.
func ConsumedShare(separated int, allocs []AllocationShare, allocationID uuid.UUID) int {
	prefix := 0
	for _, a := range allocs {
		share := clampInt(separated-prefix, 0, a.Quantity)
		if a.ID == allocationID {
			return share
		}
		prefix += a.Quantity
	}
	return 0
}

// AllocationSharesTx reads a line's live allocations in creation order
// inside the caller's transaction. RETURNED allocations are out of the
// walk; released quantity was never consumed.
func AllocationSharesTx(ctx context.Context, tx *sql.Tx, lineID uuid.UUID) ([]AllocationShare, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, address_id, quantity, status FROM allocations
		WHERE line_id=$1 AND status IN ('RESERVED','SEPARATED')
		ORDER BY created_at`, lineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var allocs []AllocationShare
	for rows.Next() {
		var a AllocationShare
		var status string
		if err := rows.Scan(&a.ID, &a.AddressID, &a.Quantity, &status); err != nil {
			return nil, err
		}
		a.Separated = status == "SEPARATED"
		allocs = append(allocs, a)
	}
	return allocs, rows.Err()
}
