package cancellation

import (
	"context"

	"github.com/google/uuid"
)

// ReturnParams is one return of cancelled quantity to an address.
type ReturnParams struct {
	LineID    uuid.UUID
	AddressID uuid.UUID
	Quantity  int
	ActorID   uuid.UUID
}

// Repository defines data access for cancellations and their lines.
type Repository interface {
	// Create persists the cancellation and its lines atomically,
	// logging one cancellation entry per line.
	Create(ctx context.Context, c *Cancellation) error

	// Get retrieves a cancellation with its lines.
	Get(ctx context.Context, id uuid.UUID) (*Cancellation, error)

	// GetLine retrieves one cancellation line.
	GetLine(ctx context.Context, id uuid.UUID) (*CancellationLine, error)

	// List returns cancellations newest first, optionally filtered by status.
	List(ctx context.Context, status Status) ([]*Cancellation, error)

	// ReturnToAddress credits returned quantity to an address and
	// advances the line's cumulative returned counter. The counter
	// guard (returned + qty <= cancelled) and the increment are one
	// conditional update; losing it yields a Conflict and no writes.
	ReturnToAddress(ctx context.Context, p *ReturnParams) (*CancellationLine, error)
}
