package cancellation

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks a cancellation group's return progress.
type Status string

const (
	StatusAwaitingReturn Status = "AWAITING_RETURN"
	StatusReturning      Status = "RETURNING"
	StatusCompleted      Status = "COMPLETED"
)

// LineStatus tracks a single cancelled line's return progress.
type LineStatus string

const (
	LineAwaitingReturn LineStatus = "AWAITING_RETURN"
	LineReturning      LineStatus = "RETURNING"
	LineFullyReturned  LineStatus = "FULLY_RETURNED"
)

// Cancellation groups cancelled lines under one external order
// reference. It is completed once every line is fully returned to stock.
type Cancellation struct {
	ID        uuid.UUID           `json:"id" db:"id"`
	OrderRef  string              `json:"order_ref" db:"order_ref"`
	Reason    string              `json:"reason,omitempty" db:"reason"`
	Status    Status              `json:"status" db:"status"`
	CreatedBy uuid.UUID           `json:"created_by" db:"created_by"`
	CreatedAt time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt time.Time           `json:"updated_at" db:"updated_at"`
	Lines     []*CancellationLine `json:"lines,omitempty"`
}

// CancellationLine is the cancelled quantity of one product code and
// its cumulative returned quantity. Invariant: returned <= cancelled.
// The counter is cumulative, so a retried return can never double-credit.
type CancellationLine struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	CancellationID uuid.UUID  `json:"cancellation_id" db:"cancellation_id"`
	Code           string     `json:"code" db:"code"`
	Cancelled      int        `json:"cancelled" db:"cancelled"`
	Returned       int        `json:"returned" db:"returned"`
	Status         LineStatus `json:"status" db:"status"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}
