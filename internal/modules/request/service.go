package request

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/estoquecore/estoque-backend/internal/apperr"
)

// SubmitLine is one demand inside a submission payload.
type SubmitLine struct {
	Code        string `json:"code"`
	SupplierTag string `json:"supplier_tag,omitempty"`
	Requested   int    `json:"requested"`
}

// SubmitParams is the commercial-side submission of a picking request.
type SubmitParams struct {
	Lines     []SubmitLine `json:"lines"`
	Notes     string       `json:"notes,omitempty"`
	CreatedBy uuid.UUID    `json:"-"`
}

// Service owns the request and line lifecycle.
type Service interface {
	// Submit creates a request with its lines in SUBMITTED state.
	Submit(ctx context.Context, p *SubmitParams) (*Request, error)

	// Queue lists requests awaiting or under separation, oldest first.
	Queue(ctx context.Context) ([]*Request, error)

	// Detail returns one request with its lines.
	Detail(ctx context.Context, id uuid.UUID) (*Request, error)

	// StartSeparation stamps the first SLA checkpoint and moves the
	// request to IN_SEPARATION. Idempotent on an already-started request.
	StartSeparation(ctx context.Context, id uuid.UUID) (*Request, error)

	// ConfirmLine records the separated quantity picked for a line.
	ConfirmLine(ctx context.Context, p *ConfirmParams) (*RequestLine, error)

	// RecomputeRequestStatus re-rolls the request status from its lines.
	RecomputeRequestStatus(ctx context.Context, id uuid.UUID) (RequestStatus, error)

	// LockLine takes the advisory lock guarding commercial decisions.
	LockLine(ctx context.Context, lineID, userID uuid.UUID) error

	// UnlockLine releases the advisory lock held by the caller.
	UnlockLine(ctx context.Context, lineID, userID uuid.UUID) error

	// AssignPriority sets the operator priority on a locked line.
	AssignPriority(ctx context.Context, lineID uuid.UUID, priority int, userID uuid.UUID) (*RequestLine, error)
}

type service struct {
	repo Repository
	log  zerolog.Logger
}

// NewService creates the request queue service.
func NewService(repo Repository, log zerolog.Logger) Service {
	return &service{repo: repo, log: log}
}

func (s *service) Submit(ctx context.Context, p *SubmitParams) (*Request, error) {
	if len(p.Lines) == 0 {
		return nil, apperr.Validation("request must contain at least one line")
	}
	req := &Request{
		ID:              uuid.New(),
		RequestNumber:   NewRequestNumber(),
		Status:          RequestSubmitted,
		CreatedBy:       p.CreatedBy,
		CommercialNotes: p.Notes,
		OpenedAt:        time.Now().UTC(),
	}
	for _, l := range p.Lines {
		if l.Code == "" {
			return nil, apperr.Validation("line code is required")
		}
		if l.Requested <= 0 {
			return nil, apperr.Validation("requested quantity must be greater than zero for %s", l.Code)
		}
		req.Lines = append(req.Lines, &RequestLine{
			ID:          uuid.New(),
			RequestID:   req.ID,
			Code:        l.Code,
			SupplierTag: l.SupplierTag,
			Requested:   l.Requested,
			Status:      LinePending,
		})
	}

	if err := s.repo.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("request_number", req.RequestNumber).
		Int("lines", len(req.Lines)).
		Msg("picking request submitted")
	return s.repo.GetRequest(ctx, req.ID)
}

func (s *service) Queue(ctx context.Context) ([]*Request, error) {
	return s.repo.ListQueue(ctx)
}

func (s *service) Detail(ctx context.Context, id uuid.UUID) (*Request, error) {
	return s.repo.GetRequest(ctx, id)
}

func (s *service) StartSeparation(ctx context.Context, id uuid.UUID) (*Request, error) {
	started, err := s.repo.StartSeparation(ctx, id)
	if err != nil {
		return nil, err
	}
	if started {
		s.log.Info().Str("request_id", id.String()).Msg("separation started")
	}
	return s.repo.GetRequest(ctx, id)
}

func (s *service) ConfirmLine(ctx context.Context, p *ConfirmParams) (*RequestLine, error) {
	if p.Separated < 0 {
		return nil, apperr.Validation("separated quantity cannot be negative")
	}
	line, err := s.repo.ConfirmLine(ctx, p)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("line_id", line.ID.String()).
		Str("code", line.Code).
		Int("separated", line.Separated).
		Str("status", string(line.Status)).
		Msg("separation confirmed")
	return line, nil
}

func (s *service) RecomputeRequestStatus(ctx context.Context, id uuid.UUID) (RequestStatus, error) {
	return s.repo.RecomputeRequestStatus(ctx, id)
}

func (s *service) LockLine(ctx context.Context, lineID, userID uuid.UUID) error {
	return s.repo.AcquireLock(ctx, lineID, userID)
}

func (s *service) UnlockLine(ctx context.Context, lineID, userID uuid.UUID) error {
	return s.repo.ReleaseLock(ctx, lineID, userID)
}

func (s *service) AssignPriority(ctx context.Context, lineID uuid.UUID, priority int, userID uuid.UUID) (*RequestLine, error) {
	if priority <= 0 {
		return nil, apperr.Validation("priority must be greater than zero")
	}
	return s.repo.AssignPriority(ctx, lineID, priority, userID)
}
