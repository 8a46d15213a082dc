package allocation

import (
	"context"

	"github.com/google/uuid"
)

// ReserveParams is one reservation attempt against a specific address.
type ReserveParams struct {
	LineID    uuid.UUID
	AddressID uuid.UUID
	Quantity  int
	ActorID   uuid.UUID
}

// Repository defines data access for allocations. Reserve and Release
// are single transactions spanning the address ledger, the request
// line, the allocation row and the transaction log.
type Repository interface {
	// Reserve commits quantity at an address toward a line. The
	// availability check and the reserved increment are one conditional
	// update; losing the guard yields a Conflict and no writes at all.
	Reserve(ctx context.Context, p *ReserveParams) (*Allocation, error)

	// Release reverses an untouched reservation, giving the quantity
	// back to the address's available stock.
	Release(ctx context.Context, allocationID, actorID uuid.UUID) (*Allocation, error)

	// ListByLine returns a line's allocations in creation order.
	ListByLine(ctx context.Context, lineID uuid.UUID) ([]*Allocation, error)
}
