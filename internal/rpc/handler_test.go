package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
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

// fakeAuth resolves a single valid token into a fixed identity.
type fakeAuth struct {
	token    string
	identity *auth.Identity
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (string, error) {
	if email == "op@estoque.local" && password == "s3nha" {
		return f.token, nil
	}
	return "", apperr.Authorization("invalid credentials")
}

func (f *fakeAuth) ValidateSession(_ context.Context, token string) (*auth.Identity, error) {
	if token != f.token {
		return nil, apperr.Authorization("invalid session")
	}
	return f.identity, nil
}

func (f *fakeAuth) Logout(_ context.Context, token string) error {
	if token != f.token {
		return apperr.Authorization("invalid session")
	}
	return nil
}

type fakeCatalog struct {
	getErr   error
	products []*catalog.Product
}

func (f fakeCatalog) GetByCode(_ context.Context, code string) (*catalog.Product, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return nil, apperr.NotFound("product %s not found", code)
}

func (f fakeCatalog) Search(context.Context, string, int) ([]*catalog.Product, error) {
	return f.products, nil
}

// fakeRequests answers only what each test exercises.
type fakeRequests struct {
	request.Service
	queue     []*request.Request
	detail    *request.Request
	submitErr error
}

func (f *fakeRequests) Queue(context.Context) ([]*request.Request, error) {
	return f.queue, nil
}

func (f *fakeRequests) Detail(_ context.Context, id uuid.UUID) (*request.Request, error) {
	if f.detail == nil || f.detail.ID != id {
		return nil, apperr.NotFound("request %s not found", id)
	}
	return f.detail, nil
}

func (f *fakeRequests) Submit(_ context.Context, p *request.SubmitParams) (*request.Request, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &request.Request{ID: uuid.New(), Status: request.RequestSubmitted, CreatedBy: p.CreatedBy}, nil
}

type fakeAllocations struct {
	allocation.Service
	byLine     map[uuid.UUID][]*allocation.Allocation
	reserveErr error
}

func (f *fakeAllocations) Reserve(_ context.Context, p *allocation.ReserveParams) (*allocation.Allocation, error) {
	if f.reserveErr != nil {
		return nil, f.reserveErr
	}
	return &allocation.Allocation{ID: uuid.New(), Quantity: p.Quantity, Status: allocation.StatusReserved}, nil
}

func (f *fakeAllocations) ListByLine(_ context.Context, lineID uuid.UUID) ([]*allocation.Allocation, error) {
	return f.byLine[lineID], nil
}

type fakeCancellations struct{ cancellation.Service }

type fakeStock struct{ stock.Service }

func (fakeStock) Summary(_ context.Context, code string) (*stock.Summary, error) {
	return &stock.Summary{Code: code}, nil
}

type fakeTxlog struct{}

func (fakeTxlog) List(context.Context, int) ([]*txlog.Entry, error)                { return nil, nil }
func (fakeTxlog) ListByCode(context.Context, string, int) ([]*txlog.Entry, error)  { return nil, nil }

func newTestHandler(authSvc auth.Service, reqSvc request.Service, allocSvc allocation.Service) *chi.Mux {
	h := NewHandler(
		authSvc,
		fakeCatalog{},
		reqSvc,
		allocSvc,
		&fakeCancellations{},
		&fakeStock{},
		fakeTxlog{},
		zerolog.Nop(),
	)
	router := chi.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func call(t *testing.T, router http.Handler, payload interface{}) (int, Response) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/rpc", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, resp
}

func warehouseAuth() *fakeAuth {
	return &fakeAuth{
		token: "valid-token",
		identity: &auth.Identity{
			UserID:      uuid.New(),
			Role:        auth.RoleWarehouse,
			Permissions: []string{auth.PermSeparationQueue, auth.PermSeparationExecute},
		},
	}
}

func TestDispatchLogin(t *testing.T) {
	router := newTestHandler(warehouseAuth(), &fakeRequests{}, &fakeAllocations{})

	status, resp := call(t, router, map[string]string{
		"action": "login", "email": "op@estoque.local", "password": "s3nha",
	})
	if status != http.StatusOK || !resp.Success {
		t.Fatalf("login: status = %d, resp = %+v", status, resp)
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok || data["sessionToken"] != "valid-token" {
		t.Errorf("login data = %v", resp.Data)
	}

	status, resp = call(t, router, map[string]string{
		"action": "login", "email": "op@estoque.local", "password": "errada",
	})
	if status != http.StatusOK {
		t.Errorf("domain errors ride HTTP 200, got %d", status)
	}
	if resp.Success || resp.Code != string(apperr.KindAuthorization) {
		t.Errorf("failed login resp = %+v", resp)
	}
}

func TestDispatchUnknownAction(t *testing.T) {
	router := newTestHandler(warehouseAuth(), &fakeRequests{}, &fakeAllocations{})

	status, resp := call(t, router, map[string]string{"action": "inexistente"})
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if resp.Success || resp.Code != string(apperr.KindNotFound) {
		t.Errorf("resp = %+v, want NOT_FOUND failure", resp)
	}
}

func TestDispatchMalformedBody(t *testing.T) {
	router := newTestHandler(warehouseAuth(), &fakeRequests{}, &fakeAllocations{})

	req := httptest.NewRequest(http.MethodPost, "/api/rpc", bytes.NewReader([]byte("{nope")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("undecodable body: status = %d, want 400", rec.Code)
	}
}

func TestDispatchRequiresSession(t *testing.T) {
	router := newTestHandler(warehouseAuth(), &fakeRequests{}, &fakeAllocations{})

	_, resp := call(t, router, map[string]string{"action": "fila_separacao"})
	if resp.Success || resp.Code != string(apperr.KindAuthorization) {
		t.Errorf("missing token resp = %+v", resp)
	}

	_, resp = call(t, router, map[string]string{
		"action": "fila_separacao", "sessionToken": "forged",
	})
	if resp.Success || resp.Code != string(apperr.KindAuthorization) {
		t.Errorf("bad token resp = %+v", resp)
	}
}

func TestDispatchEnforcesPermissions(t *testing.T) {
	// warehouse identity lacks solicitacao.criar
	router := newTestHandler(warehouseAuth(), &fakeRequests{}, &fakeAllocations{})

	_, resp := call(t, router, map[string]interface{}{
		"action":       "criar_solicitacao",
		"sessionToken": "valid-token",
		"lines":        []map[string]interface{}{{"code": "PRD-001", "requested": 2}},
	})
	if resp.Success || resp.Code != string(apperr.KindAuthorization) {
		t.Errorf("denied action resp = %+v", resp)
	}

	// the queue permission it does carry works
	_, resp = call(t, router, map[string]string{
		"action": "fila_separacao", "sessionToken": "valid-token",
	})
	if !resp.Success {
		t.Errorf("granted action resp = %+v", resp)
	}
}

func TestDispatchAdminBypassesPermissionList(t *testing.T) {
	admin := &fakeAuth{
		token:    "admin-token",
		identity: &auth.Identity{UserID: uuid.New(), Role: auth.RoleAdmin},
	}
	router := newTestHandler(admin, &fakeRequests{}, &fakeAllocations{})

	_, resp := call(t, router, map[string]interface{}{
		"action":       "criar_solicitacao",
		"sessionToken": "admin-token",
		"lines":        []map[string]interface{}{{"code": "PRD-001", "requested": 2}},
	})
	if !resp.Success {
		t.Errorf("admin submission resp = %+v", resp)
	}
}

func TestDispatchMapsDomainErrors(t *testing.T) {
	allocSvc := &fakeAllocations{reserveErr: apperr.Conflict("only 3 available at address")}
	router := newTestHandler(warehouseAuth(), &fakeRequests{}, allocSvc)

	status, resp := call(t, router, map[string]interface{}{
		"action":       "reservar_endereco",
		"sessionToken": "valid-token",
		"lineId":       uuid.New().String(),
		"addressId":    uuid.New().String(),
		"qty":          5,
	})
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if resp.Success || resp.Code != string(apperr.KindConflict) {
		t.Errorf("resp = %+v, want CONFLICT failure", resp)
	}
	if resp.Error != "only 3 available at address" {
		t.Errorf("error message = %q", resp.Error)
	}
}

func TestDispatchValidatesIDs(t *testing.T) {
	router := newTestHandler(warehouseAuth(), &fakeRequests{}, &fakeAllocations{})

	_, resp := call(t, router, map[string]interface{}{
		"action":       "reservar_endereco",
		"sessionToken": "valid-token",
		"lineId":       "not-a-uuid",
		"addressId":    uuid.New().String(),
		"qty":          5,
	})
	if resp.Success || resp.Code != string(apperr.KindValidation) {
		t.Errorf("resp = %+v, want VALIDATION failure", resp)
	}
}

func TestDispatchHidesInternalErrors(t *testing.T) {
	reqSvc := &fakeRequests{submitErr: context.DeadlineExceeded}
	admin := &fakeAuth{
		token:    "admin-token",
		identity: &auth.Identity{UserID: uuid.New(), Role: auth.RoleAdmin},
	}
	router := newTestHandler(admin, reqSvc, &fakeAllocations{})

	_, resp := call(t, router, map[string]interface{}{
		"action":       "criar_solicitacao",
		"sessionToken": "admin-token",
		"lines":        []map[string]interface{}{{"code": "PRD-001", "requested": 2}},
	})
	if resp.Success || resp.Code != "INTERNAL" {
		t.Errorf("resp = %+v, want INTERNAL failure", resp)
	}
	if resp.Error != "internal error" {
		t.Errorf("internal detail leaked: %q", resp.Error)
	}
}

func TestStockSummaryCatalogErrors(t *testing.T) {
	admin := &fakeAuth{
		token:    "admin-token",
		identity: &auth.Identity{UserID: uuid.New(), Role: auth.RoleAdmin},
	}
	newRouter := func(cat fakeCatalog) *chi.Mux {
		h := NewHandler(admin, cat, &fakeRequests{}, &fakeAllocations{},
			&fakeCancellations{}, &fakeStock{}, fakeTxlog{}, zerolog.Nop())
		router := chi.NewRouter()
		h.RegisterRoutes(router)
		return router
	}

	// a code unknown to the catalog still gets its ledger view
	_, resp := call(t, newRouter(fakeCatalog{}), map[string]string{
		"action": "estoque_resumo_codigo", "sessionToken": "admin-token", "code": "PRD-001",
	})
	if !resp.Success {
		t.Fatalf("summary without product resp = %+v", resp)
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok || data["summary"] == nil {
		t.Errorf("data = %v, want summary", resp.Data)
	}
	if _, present := data["product"]; present {
		t.Errorf("unknown code must not carry product metadata: %v", data)
	}

	// any other catalog failure aborts the action
	_, resp = call(t, newRouter(fakeCatalog{getErr: context.DeadlineExceeded}), map[string]string{
		"action": "estoque_resumo_codigo", "sessionToken": "admin-token", "code": "PRD-001",
	})
	if resp.Success || resp.Code != "INTERNAL" {
		t.Errorf("catalog failure resp = %+v, want INTERNAL", resp)
	}
}

func TestRequestDetailEmbedsAllocations(t *testing.T) {
	lineWith := uuid.New()
	lineWithout := uuid.New()
	req := &request.Request{
		ID:     uuid.New(),
		Status: request.RequestInSeparation,
		Lines: []*request.RequestLine{
			{ID: lineWith, Code: "PRD-001", Requested: 10},
			{ID: lineWithout, Code: "PRD-002", Requested: 4},
		},
	}
	allocSvc := &fakeAllocations{byLine: map[uuid.UUID][]*allocation.Allocation{
		lineWith: {{ID: uuid.New(), LineID: lineWith, Quantity: 10, Status: allocation.StatusReserved}},
	}}
	router := newTestHandler(warehouseAuth(), &fakeRequests{detail: req}, allocSvc)

	_, resp := call(t, router, map[string]string{
		"action": "detalhe_solicitacao", "sessionToken": "valid-token", "requestId": req.ID.String(),
	})
	if !resp.Success {
		t.Fatalf("detail resp = %+v", resp)
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok || data["request"] == nil {
		t.Fatalf("data = %v, want request", resp.Data)
	}
	allocations, ok := data["allocations"].(map[string]interface{})
	if !ok {
		t.Fatalf("allocations = %v", data["allocations"])
	}
	if _, present := allocations[lineWith.String()]; !present {
		t.Errorf("line with a reservation is missing its allocations: %v", allocations)
	}
	if _, present := allocations[lineWithout.String()]; present {
		t.Errorf("line with no reservations must not appear: %v", allocations)
	}
}

func TestSearchProductsRequiresTerm(t *testing.T) {
	admin := &fakeAuth{
		token:    "admin-token",
		identity: &auth.Identity{UserID: uuid.New(), Role: auth.RoleAdmin},
	}
	h := NewHandler(admin, fakeCatalog{products: []*catalog.Product{{Code: "PRD-001"}}},
		&fakeRequests{}, &fakeAllocations{}, &fakeCancellations{}, &fakeStock{},
		fakeTxlog{}, zerolog.Nop())
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	_, resp := call(t, router, map[string]string{
		"action": "buscar_produtos", "sessionToken": "admin-token",
	})
	if resp.Success || resp.Code != string(apperr.KindValidation) {
		t.Errorf("empty term resp = %+v, want VALIDATION", resp)
	}

	_, resp = call(t, router, map[string]string{
		"action": "buscar_produtos", "sessionToken": "admin-token", "term": "PRD",
	})
	if !resp.Success {
		t.Errorf("search resp = %+v", resp)
	}
}

func TestLogoutRoundTrip(t *testing.T) {
	router := newTestHandler(warehouseAuth(), &fakeRequests{}, &fakeAllocations{})

	_, resp := call(t, router, map[string]string{
		"action": "logout", "sessionToken": "valid-token",
	})
	if !resp.Success {
		t.Errorf("logout resp = %+v", resp)
	}
}
