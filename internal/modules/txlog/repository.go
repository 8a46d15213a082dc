package txlog

import "context"

// Repository defines read access to the transaction log. Writes happen
// through InsertTx inside the writer's own transaction so a ledger
// mutation and its log entry commit together.
type Repository interface {
	// List returns the newest entries first, capped at limit.
	List(ctx context.Context, limit int) ([]*Entry, error)

	// ListByCode returns the newest entries for one product code.
	ListByCode(ctx context.Context, code string, limit int) ([]*Entry, error)
}
