package stock

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/estoquecore/estoque-backend/internal/apperr"
)

// memRepo mirrors the conditional-update semantics of the postgres
// repository: debits fail atomically when the origin cannot cover the
// quantity, and every mutation records one log entry type.
type memRepo struct {
	mu        sync.Mutex
	addresses map[uuid.UUID]*StockAddress
	virtual   map[string]int // location + "|" + code
	entries   []string
}

func newMemRepo() *memRepo {
	return &memRepo{
		addresses: make(map[uuid.UUID]*StockAddress),
		virtual:   make(map[string]int),
	}
}

func (r *memRepo) addAddress(code string, onHand, reserved int) uuid.UUID {
	id := uuid.New()
	r.addresses[id] = &StockAddress{
		ID: id, Rua: "R01", Coluna: 1, Nivel: 1, Posicao: len(r.addresses) + 1,
		Code: code, OnHand: onHand, Reserved: reserved,
	}
	return id
}

func (r *memRepo) GetAddress(_ context.Context, id uuid.UUID) (*StockAddress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.addresses[id]
	if !ok {
		return nil, apperr.NotFound("address %s not found", id)
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) ListAddressesWithStock(_ context.Context, code string) ([]*StockAddress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*StockAddress
	for _, a := range r.addresses {
		if a.Code == code && a.Available() > 0 {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRepo) ListAddressesForCode(_ context.Context, code string) ([]*StockAddress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*StockAddress
	for _, a := range r.addresses {
		if a.Code == code {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRepo) ListVirtualBalances(_ context.Context, code string) ([]*VirtualBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*VirtualBalance
	for _, loc := range VirtualLocations {
		if q, ok := r.virtual[loc+"|"+code]; ok {
			out = append(out, &VirtualBalance{Code: code, Location: loc, Quantity: q})
		}
	}
	return out, nil
}

func (r *memRepo) TotalAvailable(_ context.Context, code string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, a := range r.addresses {
		if a.Code == code {
			total += a.Available()
		}
	}
	return total, nil
}

func (r *memRepo) Transfer(_ context.Context, p *TransferParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch p.Origin.Kind {
	case KindAddress:
		a, ok := r.addresses[p.Origin.AddressID]
		if !ok || a.Code != p.Code {
			return apperr.NotFound("origin address has no %s", p.Code)
		}
		if a.Available() < p.Quantity {
			return apperr.Conflict("only %d available at origin", a.Available())
		}
		a.OnHand -= p.Quantity
	case KindVirtual:
		key := p.Origin.Name + "|" + p.Code
		if r.virtual[key] < p.Quantity {
			return apperr.Conflict("only %d available at origin", r.virtual[key])
		}
		r.virtual[key] -= p.Quantity
	}

	switch p.Destination.Kind {
	case KindAddress:
		a, ok := r.addresses[p.Destination.AddressID]
		if !ok {
			return apperr.NotFound("destination address not found")
		}
		a.OnHand += p.Quantity
		a.Code = p.Code
	case KindVirtual:
		r.virtual[p.Destination.Name+"|"+p.Code] += p.Quantity
	case KindExternal:
		// terminal sink, nothing credited
	}

	r.entries = append(r.entries, "TRANSFERENCIA")
	return nil
}

func (r *memRepo) SetVirtualBalance(_ context.Context, p *RecountParams) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := p.Location + "|" + p.Code
	delta := p.Quantity - r.virtual[key]
	if delta == 0 {
		return 0, nil
	}
	r.virtual[key] = p.Quantity
	r.entries = append(r.entries, "AJUSTE")
	return delta, nil
}

func (r *memRepo) Receive(_ context.Context, p *ReceiptParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.addresses[p.AddressID]
	if !ok {
		return apperr.NotFound("address not found")
	}
	a.OnHand += p.Quantity
	a.Code = p.Code
	r.entries = append(r.entries, "RECEBIMENTO")
	return nil
}

func newTestService(repo Repository) Service {
	return NewService(repo, zerolog.Nop())
}

func TestTransferValidation(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	addr := repo.addAddress("PRD-001", 50, 0)

	tests := []struct {
		name string
		p    TransferParams
	}{
		{"missing code", TransferParams{Quantity: 1,
			Origin: AddressLocation(addr), Destination: VirtualLocation(VirtualProducao)}},
		{"zero quantity", TransferParams{Code: "PRD-001",
			Origin: AddressLocation(addr), Destination: VirtualLocation(VirtualProducao)}},
		{"negative quantity", TransferParams{Code: "PRD-001", Quantity: -3,
			Origin: AddressLocation(addr), Destination: VirtualLocation(VirtualProducao)}},
		{"external origin", TransferParams{Code: "PRD-001", Quantity: 1,
			Origin: ExternalLocation("NF-1"), Destination: AddressLocation(addr)}},
		{"external destination without reference", TransferParams{Code: "PRD-001", Quantity: 1,
			Origin: AddressLocation(addr), Destination: ExternalLocation("")}},
		{"same address both sides", TransferParams{Code: "PRD-001", Quantity: 1,
			Origin: AddressLocation(addr), Destination: AddressLocation(addr)}},
		{"same virtual both sides", TransferParams{Code: "PRD-001", Quantity: 1,
			Origin: VirtualLocation(VirtualProducao), Destination: VirtualLocation(VirtualProducao)}},
		{"unknown virtual origin", TransferParams{Code: "PRD-001", Quantity: 1,
			Origin: VirtualLocation("LIMBO"), Destination: AddressLocation(addr)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Transfer(context.Background(), &tt.p)
			if !apperr.IsValidation(err) {
				t.Errorf("Transfer() error = %v, want validation error", err)
			}
		})
	}
	if len(repo.entries) != 0 {
		t.Errorf("rejected transfers wrote %d log entries", len(repo.entries))
	}
}

func TestTransferReservedStockIsUnmovable(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	origin := repo.addAddress("PRD-001", 50, 10)

	// only the 40 unreserved units can move
	err := svc.Transfer(context.Background(), &TransferParams{
		Code: "PRD-001", Quantity: 45,
		Origin:      AddressLocation(origin),
		Destination: VirtualLocation(VirtualQualidade),
	})
	if !apperr.IsConflict(err) {
		t.Fatalf("moving into the reserved portion: error = %v, want conflict", err)
	}
	if got := repo.addresses[origin].OnHand; got != 50 {
		t.Fatalf("failed transfer mutated origin: on_hand = %d", got)
	}

	err = svc.Transfer(context.Background(), &TransferParams{
		Code: "PRD-001", Quantity: 40,
		Origin:      AddressLocation(origin),
		Destination: VirtualLocation(VirtualQualidade),
	})
	if err != nil {
		t.Fatalf("transfer of unreserved stock failed: %v", err)
	}
	a := repo.addresses[origin]
	if a.OnHand != 10 || a.Reserved != 10 {
		t.Errorf("origin after transfer = %d/%d, want 10/10", a.OnHand, a.Reserved)
	}
	if repo.virtual[VirtualQualidade+"|PRD-001"] != 40 {
		t.Errorf("destination balance = %d, want 40", repo.virtual[VirtualQualidade+"|PRD-001"])
	}
	if len(repo.entries) != 1 || repo.entries[0] != "TRANSFERENCIA" {
		t.Errorf("entries = %v, want one TRANSFERENCIA", repo.entries)
	}
}

func TestTransferToExternalSink(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	origin := repo.addAddress("PRD-001", 30, 0)

	err := svc.Transfer(context.Background(), &TransferParams{
		Code: "PRD-001", Quantity: 30,
		Origin:      AddressLocation(origin),
		Destination: ExternalLocation("NF-8841"),
	})
	if err != nil {
		t.Fatalf("external shipment failed: %v", err)
	}
	if got := repo.addresses[origin].OnHand; got != 0 {
		t.Errorf("origin on_hand = %d, want 0", got)
	}
	total, _ := repo.TotalAvailable(context.Background(), "PRD-001")
	if total != 0 {
		t.Errorf("total available = %d, want 0 after shipment", total)
	}
}

func TestSetVirtualBalance(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	delta, err := svc.SetVirtualBalance(ctx, &RecountParams{
		Code: "PRD-002", Location: VirtualProducao, Quantity: 7, Reason: "contagem",
	})
	if err != nil || delta != 7 {
		t.Fatalf("initial recount: delta = %d, err = %v, want 7, nil", delta, err)
	}

	// recount to the same value writes nothing
	delta, err = svc.SetVirtualBalance(ctx, &RecountParams{
		Code: "PRD-002", Location: VirtualProducao, Quantity: 7, Reason: "contagem",
	})
	if err != nil || delta != 0 {
		t.Fatalf("idempotent recount: delta = %d, err = %v, want 0, nil", delta, err)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("zero-delta recount logged an entry: %v", repo.entries)
	}

	delta, err = svc.SetVirtualBalance(ctx, &RecountParams{
		Code: "PRD-002", Location: VirtualProducao, Quantity: 3, Reason: "avaria",
	})
	if err != nil || delta != -4 {
		t.Fatalf("downward recount: delta = %d, err = %v, want -4, nil", delta, err)
	}
}

func TestSetVirtualBalanceValidation(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()

	cases := []RecountParams{
		{Location: VirtualProducao, Quantity: 1},            // missing code
		{Code: "PRD-001", Location: "LIMBO", Quantity: 1},   // unknown location
		{Code: "PRD-001", Location: VirtualProducao, Quantity: -1},
	}
	for _, p := range cases {
		if _, err := svc.SetVirtualBalance(ctx, &p); !apperr.IsValidation(err) {
			t.Errorf("SetVirtualBalance(%+v) error = %v, want validation", p, err)
		}
	}
}

func TestReceive(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	addr := repo.addAddress("PRD-003", 5, 0)

	err := svc.Receive(context.Background(), &ReceiptParams{
		Code: "PRD-003", AddressID: addr, Quantity: 20, Reference: "NF-100",
	})
	if err != nil {
		t.Fatalf("Receive() failed: %v", err)
	}
	if got := repo.addresses[addr].OnHand; got != 25 {
		t.Errorf("on_hand after receipt = %d, want 25", got)
	}

	if err := svc.Receive(context.Background(), &ReceiptParams{
		Code: "PRD-003", AddressID: addr, Quantity: 0,
	}); !apperr.IsValidation(err) {
		t.Errorf("zero-quantity receipt: error = %v, want validation", err)
	}
	if err := svc.Receive(context.Background(), &ReceiptParams{
		Code: "PRD-003", AddressID: uuid.Nil, Quantity: 1,
	}); !apperr.IsValidation(err) {
		t.Errorf("nil address receipt: error = %v, want validation", err)
	}
}

func TestAddressDetail(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	addr := repo.addAddress("PRD-005", 15, 3)

	got, err := svc.AddressDetail(context.Background(), addr)
	if err != nil {
		t.Fatalf("AddressDetail() failed: %v", err)
	}
	if got.ID != addr || got.OnHand != 15 || got.Reserved != 3 {
		t.Errorf("AddressDetail() = %+v", got)
	}

	if _, err := svc.AddressDetail(context.Background(), uuid.Nil); !apperr.IsValidation(err) {
		t.Errorf("nil id: error = %v, want validation", err)
	}
	if _, err := svc.AddressDetail(context.Background(), uuid.New()); !apperr.IsNotFound(err) {
		t.Errorf("unknown id: error = %v, want not found", err)
	}
}

func TestSummaryTotals(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	repo.addAddress("PRD-004", 30, 5)
	repo.addAddress("PRD-004", 12, 0)
	repo.addAddress("OTHER", 99, 0)
	repo.virtual[VirtualProducao+"|PRD-004"] = 8

	sum, err := svc.Summary(context.Background(), "PRD-004")
	if err != nil {
		t.Fatalf("Summary() failed: %v", err)
	}
	if sum.AddressedTotal != 42 {
		t.Errorf("AddressedTotal = %d, want 42", sum.AddressedTotal)
	}
	if sum.VirtualTotal != 8 {
		t.Errorf("VirtualTotal = %d, want 8", sum.VirtualTotal)
	}
	if sum.GrandTotal != 50 {
		t.Errorf("GrandTotal = %d, want 50", sum.GrandTotal)
	}
	if len(sum.Addresses) != 2 {
		t.Errorf("len(Addresses) = %d, want 2", len(sum.Addresses))
	}
}
