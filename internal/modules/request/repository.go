package request

import (
	"context"

	"github.com/google/uuid"
)

// ConfirmParams is one separation confirmation: the operator reports the
// total separated quantity for a line after the physical pick.
type ConfirmParams struct {
	LineID    uuid.UUID
	Separated int // absolute target, monotonic
	Note      string
	ActorID   uuid.UUID
}

// Repository defines data access for requests and their lines. Mutating
// calls run inside single transactions together with their ledger
// updates and transaction log entries.
type Repository interface {
	// CreateRequest persists a request and all its lines atomically,
	// snapshotting per-code availability at submission time.
	CreateRequest(ctx context.Context, req *Request) error

	// GetRequest retrieves a request with its lines.
	GetRequest(ctx context.Context, id uuid.UUID) (*Request, error)

	// GetLine retrieves a single line.
	GetLine(ctx context.Context, id uuid.UUID) (*RequestLine, error)

	// ListQueue returns SUBMITTED and IN_SEPARATION requests, oldest first.
	ListQueue(ctx context.Context) ([]*Request, error)

	// StartSeparation flips SUBMITTED to IN_SEPARATION and stamps the
	// start time. Reports started=false when the request was already in
	// separation (idempotent no-op).
	StartSeparation(ctx context.Context, id uuid.UUID) (started bool, err error)

	// ConfirmLine applies a separation confirmation: consumes reserved
	// stock at the allocated addresses, flips covered allocations,
	// writes the log entry and re-derives line and request status.
	ConfirmLine(ctx context.Context, p *ConfirmParams) (*RequestLine, error)

	// RecomputeRequestStatus re-rolls the request status from its lines.
	RecomputeRequestStatus(ctx context.Context, id uuid.UUID) (RequestStatus, error)

	// AcquireLock takes the advisory lock on a line for the caller.
	// Held-by-another yields a Conflict; stale locks are acquirable.
	AcquireLock(ctx context.Context, lineID, userID uuid.UUID) error

	// ReleaseLock clears the advisory lock when held by the caller.
	ReleaseLock(ctx context.Context, lineID, userID uuid.UUID) error

	// AssignPriority sets a line's priority. Requires the advisory lock
	// held by the caller; completing the action releases it.
	AssignPriority(ctx context.Context, lineID uuid.UUID, priority int, userID uuid.UUID) (*RequestLine, error)
}
