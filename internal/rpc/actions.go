package rpc

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/estoquecore/estoque-backend/internal/apperr"
	"github.com/estoquecore/estoque-backend/internal/modules/allocation"
	"github.com/estoquecore/estoque-backend/internal/modules/auth"
	"github.com/estoquecore/estoque-backend/internal/modules/cancellation"
	"github.com/estoquecore/estoque-backend/internal/modules/request"
	"github.com/estoquecore/estoque-backend/internal/modules/stock"
)

func parseID(field, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, apperr.Validation("%s is required", field)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid %s: %v", field, err)
	}
	return id, nil
}

// ── session ───────────────────────────────────────────────────────────────────

func (h *Handler) login(ctx context.Context, _ *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	token, err := h.authSvc.Login(ctx, p.Email, p.Password)
	if err != nil {
		return nil, err
	}
	return map[string]string{"sessionToken": token}, nil
}

func (h *Handler) logout(ctx context.Context, _ *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		SessionToken string `json:"sessionToken"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if err := h.authSvc.Logout(ctx, p.SessionToken); err != nil {
		return nil, err
	}
	return map[string]string{"status": "logged out"}, nil
}

// ── request queue ─────────────────────────────────────────────────────────────

func (h *Handler) separationQueue(ctx context.Context, _ *auth.Identity, _ json.RawMessage) (interface{}, error) {
	return h.requestSvc.Queue(ctx)
}

func (h *Handler) requestDetail(ctx context.Context, _ *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		RequestID string `json:"requestId"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	id, err := parseID("requestId", p.RequestID)
	if err != nil {
		return nil, err
	}
	req, err := h.requestSvc.Detail(ctx, id)
	if err != nil {
		return nil, err
	}
	allocations := map[string][]*allocation.Allocation{}
	for _, line := range req.Lines {
		list, err := h.allocationSvc.ListByLine(ctx, line.ID)
		if err != nil {
			return nil, err
		}
		if len(list) > 0 {
			allocations[line.ID.String()] = list
		}
	}
	return map[string]interface{}{"request": req, "allocations": allocations}, nil
}

func (h *Handler) recomputeRequest(ctx context.Context, _ *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		RequestID string `json:"requestId"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	id, err := parseID("requestId", p.RequestID)
	if err != nil {
		return nil, err
	}
	status, err := h.requestSvc.RecomputeRequestStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"requestId": p.RequestID, "status": status}, nil
}

func (h *Handler) submitRequest(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Lines []request.SubmitLine `json:"lines"`
		Notes string               `json:"notes"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	return h.requestSvc.Submit(ctx, &request.SubmitParams{
		Lines:     p.Lines,
		Notes:     p.Notes,
		CreatedBy: caller.UserID,
	})
}

func (h *Handler) startSeparation(ctx context.Context, _ *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		RequestID string `json:"requestId"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	id, err := parseID("requestId", p.RequestID)
	if err != nil {
		return nil, err
	}
	return h.requestSvc.StartSeparation(ctx, id)
}

func (h *Handler) confirmLine(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		LineID string `json:"lineId"`
		Qty    int    `json:"qty"`
		Note   string `json:"note"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	lineID, err := parseID("lineId", p.LineID)
	if err != nil {
		return nil, err
	}
	return h.requestSvc.ConfirmLine(ctx, &request.ConfirmParams{
		LineID:    lineID,
		Separated: p.Qty,
		Note:      p.Note,
		ActorID:   caller.UserID,
	})
}

func (h *Handler) lockLine(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		LineID string `json:"lineId"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	lineID, err := parseID("lineId", p.LineID)
	if err != nil {
		return nil, err
	}
	if err := h.requestSvc.LockLine(ctx, lineID, caller.UserID); err != nil {
		return nil, err
	}
	return map[string]string{"status": "locked"}, nil
}

func (h *Handler) unlockLine(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		LineID string `json:"lineId"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	lineID, err := parseID("lineId", p.LineID)
	if err != nil {
		return nil, err
	}
	if err := h.requestSvc.UnlockLine(ctx, lineID, caller.UserID); err != nil {
		return nil, err
	}
	return map[string]string{"status": "unlocked"}, nil
}

func (h *Handler) assignPriority(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		LineID   string `json:"lineId"`
		Priority int    `json:"priority"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	lineID, err := parseID("lineId", p.LineID)
	if err != nil {
		return nil, err
	}
	return h.requestSvc.AssignPriority(ctx, lineID, p.Priority, caller.UserID)
}

// ── catalog ───────────────────────────────────────────────────────────────────

func (h *Handler) searchProducts(ctx context.Context, _ *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Term  string `json:"term"`
		Limit int    `json:"limit"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if p.Term == "" {
		return nil, apperr.Validation("term is required")
	}
	return h.catalogRepo.Search(ctx, p.Term, p.Limit)
}

// ── allocation ────────────────────────────────────────────────────────────────

func (h *Handler) candidateAddresses(ctx context.Context, _ *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Code string `json:"code"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	return h.allocationSvc.CandidateAddresses(ctx, p.Code)
}

func (h *Handler) reserveAddress(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		LineID    string `json:"lineId"`
		AddressID string `json:"addressId"`
		Qty       int    `json:"qty"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	lineID, err := parseID("lineId", p.LineID)
	if err != nil {
		return nil, err
	}
	addressID, err := parseID("addressId", p.AddressID)
	if err != nil {
		return nil, err
	}
	return h.allocationSvc.Reserve(ctx, &allocation.ReserveParams{
		LineID:    lineID,
		AddressID: addressID,
		Quantity:  p.Qty,
		ActorID:   caller.UserID,
	})
}

func (h *Handler) releaseReservation(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		AllocationID string `json:"allocationId"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	allocationID, err := parseID("allocationId", p.AllocationID)
	if err != nil {
		return nil, err
	}
	return h.allocationSvc.Release(ctx, allocationID, caller.UserID)
}

// ── cancellation & return ─────────────────────────────────────────────────────

func (h *Handler) listCancellations(ctx context.Context, _ *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Status string `json:"status"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	return h.cancellationSvc.List(ctx, cancellation.Status(p.Status))
}

func (h *Handler) createCancellation(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		OrderRef string                    `json:"orderRef"`
		Reason   string                    `json:"reason"`
		Lines    []cancellation.CreateLine `json:"lines"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	return h.cancellationSvc.Create(ctx, &cancellation.CreateParams{
		OrderRef:  p.OrderRef,
		Reason:    p.Reason,
		Lines:     p.Lines,
		CreatedBy: caller.UserID,
	})
}

func (h *Handler) cancellationDetail(ctx context.Context, _ *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		CancellationID string `json:"cancellationId"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	id, err := parseID("cancellationId", p.CancellationID)
	if err != nil {
		return nil, err
	}
	return h.cancellationSvc.Detail(ctx, id)
}

func (h *Handler) returnCandidates(ctx context.Context, _ *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Code string `json:"code"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	return h.cancellationSvc.ReturnCandidateAddresses(ctx, p.Code)
}

func (h *Handler) returnToAddress(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		CancellationLineID string `json:"cancellationLineId"`
		AddressID          string `json:"addressId"`
		Qty                int    `json:"qty"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	lineID, err := parseID("cancellationLineId", p.CancellationLineID)
	if err != nil {
		return nil, err
	}
	addressID, err := parseID("addressId", p.AddressID)
	if err != nil {
		return nil, err
	}
	return h.cancellationSvc.ReturnToAddress(ctx, &cancellation.ReturnParams{
		LineID:    lineID,
		AddressID: addressID,
		Quantity:  p.Qty,
		ActorID:   caller.UserID,
	})
}

// ── stock & transfers ─────────────────────────────────────────────────────────

func (h *Handler) stockSummary(ctx context.Context, _ *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Code string `json:"code"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	summary, err := h.stockSvc.Summary(ctx, p.Code)
	if err != nil {
		return nil, err
	}
	// descriptive metadata only; a code missing from the catalog does
	// not block the ledger view
	product, err := h.catalogRepo.GetByCode(ctx, p.Code)
	if err != nil {
		if !apperr.IsNotFound(err) {
			return nil, err
		}
		return map[string]interface{}{"summary": summary}, nil
	}
	return map[string]interface{}{"summary": summary, "product": product}, nil
}

func (h *Handler) addressDetail(ctx context.Context, _ *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		AddressID string `json:"addressId"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	id, err := parseID("addressId", p.AddressID)
	if err != nil {
		return nil, err
	}
	return h.stockSvc.AddressDetail(ctx, id)
}

func (h *Handler) setVirtualBalance(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Code            string `json:"code"`
		VirtualLocation string `json:"virtualLocation"`
		Qty             int    `json:"qty"`
		Reason          string `json:"reason"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	delta, err := h.stockSvc.SetVirtualBalance(ctx, &stock.RecountParams{
		Code:     p.Code,
		Location: p.VirtualLocation,
		Quantity: p.Qty,
		Reason:   p.Reason,
		ActorID:  caller.UserID,
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"code":     p.Code,
		"location": p.VirtualLocation,
		"quantity": p.Qty,
		"delta":    delta,
	}, nil
}

// transferLocation resolves the flat RPC fields into the location union.
func transferLocation(kind, addressID, name, reference string) (stock.Location, error) {
	switch stock.LocationKind(kind) {
	case stock.KindAddress:
		id, err := parseID("addressId", addressID)
		if err != nil {
			return stock.Location{}, err
		}
		return stock.AddressLocation(id), nil
	case stock.KindVirtual:
		return stock.VirtualLocation(name), nil
	case stock.KindExternal:
		return stock.ExternalLocation(reference), nil
	default:
		return stock.Location{}, apperr.Validation("unknown location kind %q", kind)
	}
}

func (h *Handler) transfer(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Code            string `json:"code"`
		Qty             int    `json:"qty"`
		OriginKind      string `json:"originKind"`
		OriginAddressID string `json:"originAddressId"`
		OriginLocation  string `json:"originLocation"`
		DestKind        string `json:"destKind"`
		DestAddressID   string `json:"destAddressId"`
		DestLocation    string `json:"destLocation"`
		NFNumber        string `json:"nfNumber"`
		Reference       string `json:"reference"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	origin, err := transferLocation(p.OriginKind, p.OriginAddressID, p.OriginLocation, "")
	if err != nil {
		return nil, err
	}
	destination, err := transferLocation(p.DestKind, p.DestAddressID, p.DestLocation, p.NFNumber)
	if err != nil {
		return nil, err
	}
	err = h.stockSvc.Transfer(ctx, &stock.TransferParams{
		Code:        p.Code,
		Quantity:    p.Qty,
		Origin:      origin,
		Destination: destination,
		Note:        p.Reference,
		ActorID:     caller.UserID,
	})
	if err != nil {
		return nil, err
	}
	return h.stockSvc.Summary(ctx, p.Code)
}

func (h *Handler) receive(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Code      string `json:"code"`
		AddressID string `json:"addressId"`
		Qty       int    `json:"qty"`
		Reference string `json:"reference"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	addressID, err := parseID("addressId", p.AddressID)
	if err != nil {
		return nil, err
	}
	err = h.stockSvc.Receive(ctx, &stock.ReceiptParams{
		Code:      p.Code,
		AddressID: addressID,
		Quantity:  p.Qty,
		Reference: p.Reference,
		ActorID:   caller.UserID,
	})
	if err != nil {
		return nil, err
	}
	return h.stockSvc.Summary(ctx, p.Code)
}

// ── transaction log ───────────────────────────────────────────────────────────

func (h *Handler) listTransactions(ctx context.Context, _ *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Limit int    `json:"limit"`
		Code  string `json:"code"`
	}
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if p.Code != "" {
		return h.txlogRepo.ListByCode(ctx, p.Code, p.Limit)
	}
	return h.txlogRepo.List(ctx, p.Limit)
}
