package allocation

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks what happened to a reservation after it was made.
type Status string

const (
	StatusReserved  Status = "RESERVED"
	StatusSeparated Status = "SEPARATED"
	StatusReturned  Status = "RETURNED"
)

// Allocation is one reservation event: a commitment of quantity at a
// specific address toward a specific request line. Immutable once
// created except for status and returned-quantity updates.
type Allocation struct {
	ID          uuid.UUID `json:"id" db:"id"`
	LineID      uuid.UUID `json:"line_id" db:"line_id"`
	AddressID   uuid.UUID `json:"address_id" db:"address_id"`
	Code        string    `json:"code" db:"code"`
	Quantity    int       `json:"quantity" db:"quantity"`
	Returned    int       `json:"returned" db:"returned"`
	Status      Status    `json:"status" db:"status"`
	ActorID     uuid.UUID `json:"actor_id" db:"actor_id"`
	Destination string    `json:"destination,omitempty" db:"destination"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
