package allocation

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/estoquecore/estoque-backend/internal/apperr"
	"github.com/estoquecore/estoque-backend/internal/modules/stock"
)

// Service reserves and releases stock against request lines. Picking
// the address, and splitting a shortfall across several, is the
// operator's choice; the engine only enforces the availability ceiling.
type Service interface {
	// Reserve commits quantity at an address toward a line.
	Reserve(ctx context.Context, p *ReserveParams) (*Allocation, error)

	// Release reverses an untouched reservation.
	Release(ctx context.Context, allocationID, actorID uuid.UUID) (*Allocation, error)

	// CandidateAddresses lists every address with available stock of the
	// code, annotated with its available quantity.
	CandidateAddresses(ctx context.Context, code string) ([]*stock.StockAddress, error)

	// ListByLine returns a line's allocations.
	ListByLine(ctx context.Context, lineID uuid.UUID) ([]*Allocation, error)
}

type service struct {
	repo     Repository
	stockSvc stock.Service
	log      zerolog.Logger
}

// NewService creates the allocation service.
func NewService(repo Repository, stockSvc stock.Service, log zerolog.Logger) Service {
	return &service{repo: repo, stockSvc: stockSvc, log: log}
}

func (s *service) Reserve(ctx context.Context, p *ReserveParams) (*Allocation, error) {
	if p.Quantity <= 0 {
		return nil, apperr.Validation("quantity must be greater than zero")
	}
	if p.LineID == uuid.Nil || p.AddressID == uuid.Nil {
		return nil, apperr.Validation("line id and address id are required")
	}

	a, err := s.repo.Reserve(ctx, p)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("allocation_id", a.ID.String()).
		Str("code", a.Code).
		Int("quantity", a.Quantity).
		Str("address_id", a.AddressID.String()).
		Msg("stock reserved")
	return a, nil
}

func (s *service) Release(ctx context.Context, allocationID, actorID uuid.UUID) (*Allocation, error) {
	if allocationID == uuid.Nil {
		return nil, apperr.Validation("allocation id is required")
	}
	a, err := s.repo.Release(ctx, allocationID, actorID)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("allocation_id", a.ID.String()).
		Str("code", a.Code).
		Int("quantity", a.Quantity).
		Msg("reservation released")
	return a, nil
}

func (s *service) CandidateAddresses(ctx context.Context, code string) ([]*stock.StockAddress, error) {
	return s.stockSvc.CandidateAddresses(ctx, code)
}

func (s *service) ListByLine(ctx context.Context, lineID uuid.UUID) ([]*Allocation, error) {
	return s.repo.ListByLine(ctx, lineID)
}
