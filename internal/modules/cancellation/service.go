package cancellation

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/estoquecore/estoque-backend/internal/apperr"
	"github.com/estoquecore/estoque-backend/internal/modules/stock"
)

// CreateLine is one cancelled quantity inside a creation payload.
type CreateLine struct {
	Code      string `json:"code"`
	Cancelled int    `json:"cancelled"`
}

// CreateParams groups cancelled lines under an external order reference.
type CreateParams struct {
	OrderRef  string       `json:"order_ref"`
	Reason    string       `json:"reason,omitempty"`
	Lines     []CreateLine `json:"lines"`
	CreatedBy uuid.UUID    `json:"-"`
}

// Service drives the cancellation and return-to-stock reversal flow.
type Service interface {
	// Create registers a cancellation awaiting return of its stock.
	Create(ctx context.Context, p *CreateParams) (*Cancellation, error)

	// List returns cancellations, optionally filtered by status.
	List(ctx context.Context, status Status) ([]*Cancellation, error)

	// Detail returns one cancellation with its lines.
	Detail(ctx context.Context, id uuid.UUID) (*Cancellation, error)

	// ReturnCandidateAddresses lists addresses a return may target.
	// Returns are not address-constrained: any slot already holding the
	// code is listed, and crediting a slot that never held it creates
	// the ledger row.
	ReturnCandidateAddresses(ctx context.Context, code string) ([]*stock.StockAddress, error)

	// ReturnToAddress drives cancelled quantity back into an address.
	ReturnToAddress(ctx context.Context, p *ReturnParams) (*CancellationLine, error)
}

type service struct {
	repo      Repository
	stockRepo stock.Repository
	log       zerolog.Logger
}

// NewService creates the cancellation service.
func NewService(repo Repository, stockRepo stock.Repository, log zerolog.Logger) Service {
	return &service{repo: repo, stockRepo: stockRepo, log: log}
}

func (s *service) Create(ctx context.Context, p *CreateParams) (*Cancellation, error) {
	if p.OrderRef == "" {
		return nil, apperr.Validation("order reference is required")
	}
	if len(p.Lines) == 0 {
		return nil, apperr.Validation("cancellation must contain at least one line")
	}

	c := &Cancellation{
		ID:        uuid.New(),
		OrderRef:  p.OrderRef,
		Reason:    p.Reason,
		Status:    StatusAwaitingReturn,
		CreatedBy: p.CreatedBy,
	}
	for _, l := range p.Lines {
		if l.Code == "" {
			return nil, apperr.Validation("line code is required")
		}
		if l.Cancelled <= 0 {
			return nil, apperr.Validation("cancelled quantity must be greater than zero for %s", l.Code)
		}
		c.Lines = append(c.Lines, &CancellationLine{
			ID:             uuid.New(),
			CancellationID: c.ID,
			Code:           l.Code,
			Cancelled:      l.Cancelled,
			Status:         LineAwaitingReturn,
		})
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("cancellation_id", c.ID.String()).
		Str("order_ref", c.OrderRef).
		Int("lines", len(c.Lines)).
		Msg("cancellation created")
	return s.repo.Get(ctx, c.ID)
}

func (s *service) List(ctx context.Context, status Status) ([]*Cancellation, error) {
	return s.repo.List(ctx, status)
}

func (s *service) Detail(ctx context.Context, id uuid.UUID) (*Cancellation, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) ReturnCandidateAddresses(ctx context.Context, code string) ([]*stock.StockAddress, error) {
	if code == "" {
		return nil, apperr.Validation("code is required")
	}
	return s.stockRepo.ListAddressesForCode(ctx, code)
}

func (s *service) ReturnToAddress(ctx context.Context, p *ReturnParams) (*CancellationLine, error) {
	if p.Quantity <= 0 {
		return nil, apperr.Validation("quantity must be greater than zero")
	}
	if p.LineID == uuid.Nil || p.AddressID == uuid.Nil {
		return nil, apperr.Validation("cancellation line id and address id are required")
	}

	line, err := s.repo.ReturnToAddress(ctx, p)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("line_id", line.ID.String()).
		Str("code", line.Code).
		Int("quantity", p.Quantity).
		Str("status", string(line.Status)).
		Msg("stock returned to address")
	return line, nil
}
