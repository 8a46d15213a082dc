package txlog

import (
	"time"

	"github.com/google/uuid"
)

// EntryType tags the kind of quantity-affecting event.
type EntryType string

const (
	TypeReceipt      EntryType = "RECEBIMENTO"
	TypeReservation  EntryType = "RESERVA"
	TypeSeparation   EntryType = "SEPARACAO"
	TypeCancellation EntryType = "CANCELAMENTO"
	TypeReturn       EntryType = "DEVOLUCAO"
	TypeAdjustment   EntryType = "AJUSTE"
	TypeTransfer     EntryType = "TRANSFERENCIA"
)

// Entry is an immutable audit record of a quantity-affecting event.
// Entries are only ever inserted, never updated or deleted.
type Entry struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Type        EntryType `json:"type" db:"type"`
	Code        string    `json:"code" db:"code"`
	Quantity    int       `json:"quantity" db:"quantity"` // signed delta
	Origin      string    `json:"origin,omitempty" db:"origin"`
	Destination string    `json:"destination,omitempty" db:"destination"`
	ActorID     uuid.UUID `json:"actor_id" db:"actor_id"`
	Reference   string    `json:"reference,omitempty" db:"reference"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
