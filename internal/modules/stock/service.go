package stock

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/estoquecore/estoque-backend/internal/apperr"
)

// Service exposes the location and virtual-location ledgers and the
// transfer engine.
type Service interface {
	// CandidateAddresses lists every address with available stock of the
	// code so a caller can split a shortfall across several addresses.
	CandidateAddresses(ctx context.Context, code string) ([]*StockAddress, error)

	// Summary returns addresses, virtual balances and totals for a code.
	Summary(ctx context.Context, code string) (*Summary, error)

	// AddressDetail returns a single address with its per-code balances.
	AddressDetail(ctx context.Context, id uuid.UUID) (*StockAddress, error)

	// Transfer moves quantity between two locations. Reserved stock at
	// an addressed origin is un-movable; the external sink is one-way.
	Transfer(ctx context.Context, p *TransferParams) error

	// SetVirtualBalance applies a physical recount at a virtual location
	// and returns the signed correction that was logged.
	SetVirtualBalance(ctx context.Context, p *RecountParams) (int, error)

	// Receive books an inbound receipt into an addressed slot.
	Receive(ctx context.Context, p *ReceiptParams) error
}

type service struct {
	repo Repository
	log  zerolog.Logger
}

// NewService creates the stock service.
func NewService(repo Repository, log zerolog.Logger) Service {
	return &service{repo: repo, log: log}
}

func (s *service) CandidateAddresses(ctx context.Context, code string) ([]*StockAddress, error) {
	if code == "" {
		return nil, apperr.Validation("code is required")
	}
	return s.repo.ListAddressesWithStock(ctx, code)
}

func (s *service) Summary(ctx context.Context, code string) (*Summary, error) {
	if code == "" {
		return nil, apperr.Validation("code is required")
	}
	addresses, err := s.repo.ListAddressesForCode(ctx, code)
	if err != nil {
		return nil, err
	}
	balances, err := s.repo.ListVirtualBalances(ctx, code)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Code: code, Addresses: addresses, VirtualBalances: balances}
	for _, a := range addresses {
		summary.AddressedTotal += a.OnHand
	}
	for _, b := range balances {
		summary.VirtualTotal += b.Quantity
	}
	summary.GrandTotal = summary.AddressedTotal + summary.VirtualTotal
	return summary, nil
}

func (s *service) AddressDetail(ctx context.Context, id uuid.UUID) (*StockAddress, error) {
	if id == uuid.Nil {
		return nil, apperr.Validation("address id is required")
	}
	return s.repo.GetAddress(ctx, id)
}

func (s *service) Transfer(ctx context.Context, p *TransferParams) error {
	if p.Code == "" {
		return apperr.Validation("code is required")
	}
	if p.Quantity <= 0 {
		return apperr.Validation("quantity must be greater than zero")
	}
	if err := p.Origin.ValidateAsOrigin(); err != nil {
		return err
	}
	if err := p.Destination.ValidateAsDestination(); err != nil {
		return err
	}
	if p.Origin.Kind == p.Destination.Kind {
		sameAddress := p.Origin.Kind == KindAddress && p.Origin.AddressID == p.Destination.AddressID
		sameVirtual := p.Origin.Kind == KindVirtual && p.Origin.Name == p.Destination.Name
		if sameAddress || sameVirtual {
			return apperr.Validation("origin and destination must differ")
		}
	}

	if err := s.repo.Transfer(ctx, p); err != nil {
		return err
	}
	s.log.Info().
		Str("code", p.Code).
		Int("quantity", p.Quantity).
		Str("origin", p.Origin.String()).
		Str("destination", p.Destination.String()).
		Msg("stock transferred")
	return nil
}

func (s *service) SetVirtualBalance(ctx context.Context, p *RecountParams) (int, error) {
	if p.Code == "" {
		return 0, apperr.Validation("code is required")
	}
	if !IsVirtualLocation(p.Location) {
		return 0, apperr.Validation("unknown virtual location %q", p.Location)
	}
	if p.Quantity < 0 {
		return 0, apperr.Validation("quantity cannot be negative")
	}

	delta, err := s.repo.SetVirtualBalance(ctx, p)
	if err != nil {
		return 0, err
	}
	if delta != 0 {
		s.log.Info().
			Str("code", p.Code).
			Str("location", p.Location).
			Int("delta", delta).
			Str("reason", p.Reason).
			Msg("virtual balance corrected")
	}
	return delta, nil
}

func (s *service) Receive(ctx context.Context, p *ReceiptParams) error {
	if p.Code == "" {
		return apperr.Validation("code is required")
	}
	if p.Quantity <= 0 {
		return apperr.Validation("quantity must be greater than zero")
	}
	if p.AddressID == uuid.Nil {
		return apperr.Validation("address id is required")
	}
	return s.repo.Receive(ctx, p)
}
