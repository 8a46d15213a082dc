package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/estoquecore/estoque-backend/internal/apperr"
	"github.com/estoquecore/estoque-backend/internal/modules/allocation"
	"github.com/estoquecore/estoque-backend/internal/modules/auth"
	"github.com/estoquecore/estoque-backend/internal/modules/cancellation"
	"github.com/estoquecore/estoque-backend/internal/modules/catalog"
	"github.com/estoquecore/estoque-backend/internal/modules/request"
	"github.com/estoquecore/estoque-backend/internal/modules/stock"
	"github.com/estoquecore/estoque-backend/internal/modules/txlog"
)

const maxBodyBytes = 1 << 20

// actionFunc handles one decoded RPC action for an authenticated caller.
type actionFunc func(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error)

type actionDef struct {
	permission string // empty means session-only, no permission check
	public     bool   // no session required (login)
	handle     actionFunc
}

// Handler is the action-style RPC boundary: one POST endpoint carrying
// {action, sessionToken, ...params}, answering {success, data?, error?}.
type Handler struct {
	authSvc         auth.Service
	catalogRepo     catalog.Repository
	requestSvc      request.Service
	allocationSvc   allocation.Service
	cancellationSvc cancellation.Service
	stockSvc        stock.Service
	txlogRepo       txlog.Repository
	log             zerolog.Logger

	actions map[string]actionDef
}

// NewHandler wires every RPC action to its service.
func NewHandler(
	authSvc auth.Service,
	catalogRepo catalog.Repository,
	requestSvc request.Service,
	allocationSvc allocation.Service,
	cancellationSvc cancellation.Service,
	stockSvc stock.Service,
	txlogRepo txlog.Repository,
	log zerolog.Logger,
) *Handler {
	h := &Handler{
		authSvc:         authSvc,
		catalogRepo:     catalogRepo,
		requestSvc:      requestSvc,
		allocationSvc:   allocationSvc,
		cancellationSvc: cancellationSvc,
		stockSvc:        stockSvc,
		txlogRepo:       txlogRepo,
		log:             log,
	}
	h.actions = map[string]actionDef{
		"login":  {public: true, handle: h.login},
		"logout": {handle: h.logout},

		"fila_separacao":      {permission: auth.PermSeparationQueue, handle: h.separationQueue},
		"detalhe_solicitacao": {permission: auth.PermSeparationQueue, handle: h.requestDetail},
		"criar_solicitacao":   {permission: auth.PermRequestCreate, handle: h.submitRequest},
		"iniciar_separacao":   {permission: auth.PermSeparationExecute, handle: h.startSeparation},
		"confirmar_separacao": {permission: auth.PermSeparationExecute, handle: h.confirmLine},

		"recalcular_solicitacao": {permission: auth.PermSeparationExecute, handle: h.recomputeRequest},

		"travar_linha":       {permission: auth.PermRequestDecide, handle: h.lockLine},
		"destravar_linha":    {permission: auth.PermRequestDecide, handle: h.unlockLine},
		"definir_prioridade": {permission: auth.PermRequestDecide, handle: h.assignPriority},

		"buscar_produtos": {permission: auth.PermStockView, handle: h.searchProducts},

		"buscar_enderecos_codigo": {permission: auth.PermSeparationExecute, handle: h.candidateAddresses},
		"reservar_endereco":       {permission: auth.PermSeparationExecute, handle: h.reserveAddress},
		"liberar_reserva":         {permission: auth.PermSeparationExecute, handle: h.releaseReservation},

		"listar_cancelamentos":       {permission: auth.PermCancellationView, handle: h.listCancellations},
		"criar_cancelamento":         {permission: auth.PermCancellationWrite, handle: h.createCancellation},
		"detalhe_cancelamento":       {permission: auth.PermCancellationView, handle: h.cancellationDetail},
		"buscar_enderecos_devolucao": {permission: auth.PermCancellationWrite, handle: h.returnCandidates},
		"enderecar_devolucao":        {permission: auth.PermCancellationWrite, handle: h.returnToAddress},

		"estoque_resumo_codigo": {permission: auth.PermStockView, handle: h.stockSummary},
		"estoque_endereco":      {permission: auth.PermStockView, handle: h.addressDetail},
		"estoque_alocacao_set":  {permission: auth.PermStockAdjust, handle: h.setVirtualBalance},
		"estoque_transferir":    {permission: auth.PermStockTransfer, handle: h.transfer},
		"estoque_receber":       {permission: auth.PermStockTransfer, handle: h.receive},

		"listar_transactions": {permission: auth.PermStockView, handle: h.listTransactions},
	}
	return h
}

// RegisterRoutes mounts the RPC endpoint.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Post("/api/rpc", h.dispatch)
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respond(w, http.StatusBadRequest, Response{Success: false, Error: "unreadable body"})
		return
	}
	var hdr header
	if err := json.Unmarshal(body, &hdr); err != nil {
		respond(w, http.StatusBadRequest, Response{Success: false, Error: "malformed JSON body"})
		return
	}

	def, ok := h.actions[hdr.Action]
	if !ok {
		respondError(w, apperr.NotFound("unknown action %q", hdr.Action))
		return
	}

	start := time.Now()
	outcome := "ok"
	defer func() {
		actionTotal.WithLabelValues(hdr.Action, outcome).Inc()
		actionDuration.WithLabelValues(hdr.Action).Observe(time.Since(start).Seconds())
	}()

	ctx := r.Context()
	var caller *auth.Identity
	if !def.public {
		caller, err = h.authSvc.ValidateSession(ctx, hdr.SessionToken)
		if err != nil {
			outcome = "auth_error"
			respondError(w, err)
			return
		}
		if def.permission != "" && !caller.Can(def.permission) {
			outcome = "auth_error"
			respondError(w, apperr.Authorization("permission denied"))
			return
		}
	}

	data, err := def.handle(ctx, caller, body)
	if err != nil {
		outcome = "error"
		if apperr.KindOf(err) == "" {
			h.log.Error().Err(err).Str("action", hdr.Action).Msg("rpc action failed")
		}
		respondError(w, err)
		return
	}
	respondData(w, data)
}

func decode(raw json.RawMessage, dst interface{}) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperr.Validation("malformed parameters: %v", err)
	}
	return nil
}
