package stock

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/estoquecore/estoque-backend/internal/apperr"
)

// StockAddress is one physical storage slot holding quantities of a
// single product code. available = on_hand - reserved; the reserved
// portion is committed to request lines and cannot be moved.
type StockAddress struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Rua       string    `json:"rua" db:"rua"`
	Coluna    int       `json:"coluna" db:"coluna"`
	Nivel     int       `json:"nivel" db:"nivel"`
	Posicao   int       `json:"posicao" db:"posicao"`
	Code      string    `json:"code" db:"code"`
	OnHand    int       `json:"on_hand" db:"on_hand"`
	Reserved  int       `json:"reserved" db:"reserved"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Available is the quantity not yet committed to any request line.
func (a *StockAddress) Available() int { return a.OnHand - a.Reserved }

// Label is the human coordinate string, e.g. "R01-C02-N1-P3".
func (a *StockAddress) Label() string {
	return fmt.Sprintf("%s-C%02d-N%d-P%d", a.Rua, a.Coluna, a.Nivel, a.Posicao)
}

// Virtual locations are a fixed set of non-addressed holding areas.
const (
	VirtualProducao           = "PRODUCAO"
	VirtualQualidade          = "QUALIDADE"
	VirtualQualidadeReprovada = "QUALIDADE_REPROVADA"
	VirtualExpedicao          = "EXPEDICAO"
)

// VirtualLocations lists every valid virtual location name.
var VirtualLocations = []string{
	VirtualProducao,
	VirtualQualidade,
	VirtualQualidadeReprovada,
	VirtualExpedicao,
}

// IsVirtualLocation reports whether name is one of the fixed virtual locations.
func IsVirtualLocation(name string) bool {
	for _, l := range VirtualLocations {
		if l == name {
			return true
		}
	}
	return false
}

// VirtualBalance is the quantity of one code held at one virtual
// location. Virtual locations carry no reserved split.
type VirtualBalance struct {
	Code      string    `json:"code" db:"code"`
	Location  string    `json:"location" db:"location"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LocationKind discriminates the transfer location union.
type LocationKind string

const (
	KindAddress  LocationKind = "ENDERECO"
	KindVirtual  LocationKind = "VIRTUAL"
	KindExternal LocationKind = "EXTERNO"
)

// Location is a tagged union: an addressed slot, a named virtual
// location, or the terminal external sink. Each case carries only the
// field it needs.
type Location struct {
	Kind      LocationKind
	AddressID uuid.UUID // KindAddress
	Name      string    // KindVirtual
	Reference string    // KindExternal: mandatory shipping-document number
}

// AddressLocation builds an addressed location.
func AddressLocation(id uuid.UUID) Location {
	return Location{Kind: KindAddress, AddressID: id}
}

// VirtualLocation builds a virtual location.
func VirtualLocation(name string) Location {
	return Location{Kind: KindVirtual, Name: name}
}

// ExternalLocation builds the terminal external sink.
func ExternalLocation(reference string) Location {
	return Location{Kind: KindExternal, Reference: reference}
}

// ValidateAsOrigin rejects locations that cannot source a transfer.
// Nothing may ever be transferred out of the external sink.
func (l Location) ValidateAsOrigin() error {
	switch l.Kind {
	case KindAddress:
		if l.AddressID == uuid.Nil {
			return apperr.Validation("origin address id is required")
		}
	case KindVirtual:
		if !IsVirtualLocation(l.Name) {
			return apperr.Validation("unknown virtual location %q", l.Name)
		}
	case KindExternal:
		return apperr.Validation("external shipment is a destination only")
	default:
		return apperr.Validation("unknown origin location kind %q", l.Kind)
	}
	return nil
}

// ValidateAsDestination rejects malformed destinations. The external
// sink requires a shipping-document reference.
func (l Location) ValidateAsDestination() error {
	switch l.Kind {
	case KindAddress:
		if l.AddressID == uuid.Nil {
			return apperr.Validation("destination address id is required")
		}
	case KindVirtual:
		if !IsVirtualLocation(l.Name) {
			return apperr.Validation("unknown virtual location %q", l.Name)
		}
	case KindExternal:
		if l.Reference == "" {
			return apperr.Validation("external shipment requires a document reference")
		}
	default:
		return apperr.Validation("unknown destination location kind %q", l.Kind)
	}
	return nil
}

// String renders the location for transaction log entries.
func (l Location) String() string {
	switch l.Kind {
	case KindAddress:
		return string(KindAddress) + ":" + l.AddressID.String()
	case KindVirtual:
		return l.Name
	case KindExternal:
		return string(KindExternal) + ":" + l.Reference
	}
	return string(l.Kind)
}

// Summary is the full stock picture for one product code.
type Summary struct {
	Code            string            `json:"code"`
	Addresses       []*StockAddress   `json:"addresses"`
	VirtualBalances []*VirtualBalance `json:"virtual_balances"`
	AddressedTotal  int               `json:"addressed_total"`
	VirtualTotal    int               `json:"virtual_total"`
	GrandTotal      int               `json:"grand_total"`
}
