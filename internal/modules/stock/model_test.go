package stock

import (
	"testing"

	"github.com/google/uuid"

	"github.com/estoquecore/estoque-backend/internal/apperr"
)

func TestAddressAvailable(t *testing.T) {
	a := &StockAddress{OnHand: 50, Reserved: 10}
	if got := a.Available(); got != 40 {
		t.Errorf("Available() = %d, want 40", got)
	}
}

func TestAddressLabel(t *testing.T) {
	a := &StockAddress{Rua: "R01", Coluna: 2, Nivel: 1, Posicao: 3}
	if got := a.Label(); got != "R01-C02-N1-P3" {
		t.Errorf("Label() = %q", got)
	}
}

func TestIsVirtualLocation(t *testing.T) {
	for _, name := range VirtualLocations {
		if !IsVirtualLocation(name) {
			t.Errorf("%q should be a virtual location", name)
		}
	}
	for _, name := range []string{"", "producao", "ARMAZEM", "EXTERNO"} {
		if IsVirtualLocation(name) {
			t.Errorf("%q should not be a virtual location", name)
		}
	}
}

func TestLocationValidateAsOrigin(t *testing.T) {
	tests := []struct {
		name     string
		loc      Location
		wantKind apperr.Kind
	}{
		{"valid address", AddressLocation(uuid.New()), ""},
		{"nil address id", AddressLocation(uuid.Nil), apperr.KindValidation},
		{"valid virtual", VirtualLocation(VirtualProducao), ""},
		{"unknown virtual", VirtualLocation("LIMBO"), apperr.KindValidation},
		{"external never sources", ExternalLocation("NF-123"), apperr.KindValidation},
		{"unknown kind", Location{Kind: "CAMINHAO"}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperr.KindOf(tt.loc.ValidateAsOrigin()); got != tt.wantKind {
				t.Errorf("ValidateAsOrigin() kind = %q, want %q", got, tt.wantKind)
			}
		})
	}
}

func TestLocationValidateAsDestination(t *testing.T) {
	tests := []struct {
		name     string
		loc      Location
		wantKind apperr.Kind
	}{
		{"valid address", AddressLocation(uuid.New()), ""},
		{"valid virtual", VirtualLocation(VirtualExpedicao), ""},
		{"external with reference", ExternalLocation("NF-123"), ""},
		{"external without reference", ExternalLocation(""), apperr.KindValidation},
		{"unknown virtual", VirtualLocation("LIMBO"), apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperr.KindOf(tt.loc.ValidateAsDestination()); got != tt.wantKind {
				t.Errorf("ValidateAsDestination() kind = %q, want %q", got, tt.wantKind)
			}
		})
	}
}

func TestLocationString(t *testing.T) {
	id := uuid.New()
	if got := AddressLocation(id).String(); got != "ENDERECO:"+id.String() {
		t.Errorf("address String() = %q", got)
	}
	if got := VirtualLocation(VirtualQualidade).String(); got != "QUALIDADE" {
		t.Errorf("virtual String() = %q", got)
	}
	if got := ExternalLocation("NF-42").String(); got != "EXTERNO:NF-42" {
		t.Errorf("external String() = %q", got)
	}
}
