package stock

import (
	"context"

	"github.com/google/uuid"
)

// TransferParams describes one atomic movement between two locations.
type TransferParams struct {
	Code        string
	Quantity    int
	Origin      Location
	Destination Location
	Note        string
	ActorID     uuid.UUID
}

// RecountParams describes an absolute count correction at a virtual location.
type RecountParams struct {
	Code     string
	Location string
	Quantity int
	Reason   string
	ActorID  uuid.UUID
}

// ReceiptParams describes an inbound receipt into an addressed slot.
type ReceiptParams struct {
	Code      string
	AddressID uuid.UUID
	Quantity  int
	Reference string
	ActorID   uuid.UUID
}

// Repository defines data access for the location and virtual-location
// ledgers. Every mutating call is one transaction: the ledger change and
// its transaction log entry commit or roll back together.
type Repository interface {
	// GetAddress retrieves one address ledger row.
	GetAddress(ctx context.Context, id uuid.UUID) (*StockAddress, error)

	// ListAddressesWithStock returns every address holding available
	// stock of the code, annotated with current quantities.
	ListAddressesWithStock(ctx context.Context, code string) ([]*StockAddress, error)

	// ListAddressesForCode returns every address row for the code
	// regardless of quantity (return-candidate listing).
	ListAddressesForCode(ctx context.Context, code string) ([]*StockAddress, error)

	// ListVirtualBalances returns the virtual-location balances for the code.
	ListVirtualBalances(ctx context.Context, code string) ([]*VirtualBalance, error)

	// TotalAvailable sums on_hand - reserved across all addresses for the code.
	TotalAvailable(ctx context.Context, code string) (int, error)

	// Transfer atomically debits the origin and credits the destination.
	// The availability check and the debit are a single conditional
	// update; an exhausted origin yields a Conflict and no writes.
	Transfer(ctx context.Context, p *TransferParams) error

	// SetVirtualBalance applies an absolute recount and returns the
	// signed delta that was logged. A zero delta writes nothing.
	SetVirtualBalance(ctx context.Context, p *RecountParams) (int, error)

	// Receive credits an inbound receipt to an addressed slot.
	Receive(ctx context.Context, p *ReceiptParams) error
}
