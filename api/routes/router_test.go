package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-engine/api/controllers"
	"github.com/angelmondragon/storefront-engine/api/middleware"
	"github.com/angelmondragon/storefront-engine/internal/catalog"
	"github.com/angelmondragon/storefront-engine/internal/orders"
	"github.com/angelmondragon/storefront-engine/internal/session"
	"github.com/angelmondragon/storefront-engine/pkg/config"
	"github.com/angelmondragon/storefront-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
	"github.com/angelmondragon/storefront-engine/pkg/metrics"
	"github.com/angelmondragon/storefront-engine/pkg/storefrontapi"
	"github.com/angelmondragon/storefront-engine/pkg/types"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubCatalog struct{ menu *catalog.Menu }

func (s stubCatalog) Menu(context.Context) (*catalog.Menu, error) { return s.menu, nil }

func (s stubCatalog) Product(_ context.Context, id string) (catalog.Product, error) {
	if p, ok := s.menu.Product(id); ok {
		return p, nil
	}
	return catalog.Product{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

type stubAddresses struct{}

func (stubAddresses) List(context.Context, string) []types.Address {
	return []types.Address{{ID: "addr-1", Street: "Rua A", Number: "10", District: "Centro", IsDefault: true}}
}
func (stubAddresses) Create(_ context.Context, _ string, in types.AddressInput) (types.Address, error) {
	return types.Address{ID: "addr-2", Street: in.Street, District: in.District}, nil
}
func (stubAddresses) Update(context.Context, string, string, types.AddressPatch) (types.Address, error) {
	return types.Address{}, nil
}
func (stubAddresses) Delete(context.Context, string, string) error { return nil }
func (stubAddresses) SetDefault(context.Context, string, string) ([]types.Address, error) {
	return nil, nil
}
func (stubAddresses) Districts(context.Context) []types.District {
	return []types.District{{Name: "Centro", DeliveryFee: decimal.RequireFromString("5.00")}}
}
func (stubAddresses) SearchStreets(context.Context, string) []types.Street { return nil }

type stubGateway struct {
	mu        sync.Mutex
	submitted []orders.Request
}

func (g *stubGateway) SubmitOrder(_ context.Context, req orders.Request) (orders.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitted = append(g.submitted, req)
	return orders.Order{ID: "order-1", Code: "A1", Status: "aguardando_aceite", DeliveryMode: req.DeliveryMode, Total: req.Total}, nil
}

func (g *stubGateway) GetOrderStatus(_ context.Context, id string) (orders.Order, error) {
	return orders.Order{ID: id, Code: "A1", Status: "aceito", DeliveryMode: enums.DeliveryModePickup}, nil
}

type stubIdentity struct{}

func (stubIdentity) CheckIdentifier(_ context.Context, identifier string) (storefrontapi.IdentifierResult, error) {
	return storefrontapi.IdentifierResult{Found: identifier == "11999990000", Type: storefrontapi.IdentifierTypeClient, ClientID: "client-1"}, nil
}

func (stubIdentity) ClientLogin(_ context.Context, clientID, password string) (storefrontapi.LoginResult, error) {
	if password == "wrong" {
		return storefrontapi.LoginResult{Success: false}, nil
	}
	return storefrontapi.LoginResult{Success: true, Client: storefrontapi.Customer{ID: clientID, Name: "Ana"}}, nil
}

func (stubIdentity) RegisterClient(_ context.Context, name, phone string) (storefrontapi.Customer, error) {
	return storefrontapi.Customer{ID: "client-new", Name: name, Phone: phone}, nil
}

func fries() catalog.Product {
	return catalog.Product{ID: "fries", Name: "Fries", Type: enums.ProductTypeSimple, SalePrice: decimal.RequireFromString("9.50")}
}

type harness struct {
	t       *testing.T
	handler http.Handler
	gateway *stubGateway
	session string
}

func newHarness(t *testing.T, readiness map[string]controllers.Pinger) *harness {
	t.Helper()
	reg := prometheus.NewRegistry()
	gw := &stubGateway{}
	manager, err := session.NewManager(session.Params{
		Catalog:         stubCatalog{menu: catalog.NewMenu([]catalog.Product{fries()})},
		Addresses:       stubAddresses{},
		Gateway:         gw,
		Logger:          logger.Nop(),
		CheckoutMetrics: metrics.NewCheckoutMetrics(reg),
		TrackingMetrics: metrics.NewTrackingMetrics(reg),
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() { _ = manager.Shutdown(context.Background()) })

	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	handler := NewRouter(cfg, logger.Nop(), manager, stubIdentity{}, nil, reg, readiness)
	return &harness{t: t, handler: handler, gateway: gw}
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if h.session != "" {
		req.Header.Set(middleware.SessionHeader, h.session)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	if id := rec.Header().Get(middleware.SessionHeader); id != "" {
		h.session = id
	}
	return rec
}

func (h *harness) expect(rec *httptest.ResponseRecorder, status int) {
	h.t.Helper()
	if rec.Code != status {
		h.t.Fatalf("expected %d got %d: %s", status, rec.Code, rec.Body.String())
	}
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthRoutes(t *testing.T) {
	h := newHarness(t, map[string]controllers.Pinger{"db": stubPinger{}})

	rec := h.do(http.MethodGet, "/health/live", nil)
	h.expect(rec, http.StatusOK)
	if rec.Header().Get("X-Storefront-Env") != "dev" {
		t.Fatalf("expected env header")
	}
	h.expect(h.do(http.MethodGet, "/health/ready", nil), http.StatusOK)
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	h := newHarness(t, map[string]controllers.Pinger{"db": stubPinger{}, "redis": stubPinger{err: errors.New("down")}})
	h.expect(h.do(http.MethodGet, "/health/ready", nil), http.StatusServiceUnavailable)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	h.expect(h.do(http.MethodGet, "/metrics", nil), http.StatusOK)
}

func TestCheckoutRequiresIdentifiedClient(t *testing.T) {
	h := newHarness(t, nil)
	h.expect(h.do(http.MethodPost, "/api/v1/checkout", nil), http.StatusBadRequest)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h := newHarness(t, nil)
	h.expect(h.do(http.MethodPost, "/api/v1/identity/login", map[string]string{"client_id": "client-1", "password": "wrong"}), http.StatusBadRequest)

	var current struct {
		ClientID string `json:"client_id"`
	}
	rec := h.do(http.MethodGet, "/api/v1/identity", nil)
	h.expect(rec, http.StatusOK)
	decodeData(t, rec, &current)
	if current.ClientID != "" {
		t.Fatalf("expected no client bound, got %q", current.ClientID)
	}
}

func TestUnknownCartLineIsNotFound(t *testing.T) {
	h := newHarness(t, nil)
	h.expect(h.do(http.MethodDelete, "/api/v1/cart/items/missing", nil), http.StatusNotFound)
}

func TestOrderFlowOverHTTP(t *testing.T) {
	h := newHarness(t, nil)

	var check storefrontapi.IdentifierResult
	rec := h.do(http.MethodPost, "/api/v1/identity/check", map[string]string{"identifier": "11999990000"})
	h.expect(rec, http.StatusOK)
	decodeData(t, rec, &check)
	if !check.Found {
		t.Fatalf("expected identifier to be found")
	}
	if h.session == "" {
		t.Fatalf("expected a session id header")
	}

	h.expect(h.do(http.MethodPost, "/api/v1/identity/login", map[string]string{"client_id": check.ClientID}), http.StatusOK)

	h.expect(h.do(http.MethodGet, "/api/v1/menu", nil), http.StatusOK)
	h.expect(h.do(http.MethodPost, "/api/v1/configurator", map[string]string{"product_id": "fries"}), http.StatusCreated)
	h.expect(h.do(http.MethodPost, "/api/v1/configurator/quantity", map[string]int{"delta": 1}), http.StatusOK)

	added := false
	for i := 0; i < 5 && !added; i++ {
		rec := h.do(http.MethodPost, "/api/v1/configurator/advance", nil)
		h.expect(rec, http.StatusOK)
		var resp struct {
			Added *json.RawMessage `json:"added"`
		}
		decodeData(t, rec, &resp)
		added = resp.Added != nil
	}
	if !added {
		t.Fatalf("configurator never committed")
	}

	var cartView struct {
		Total     decimal.Decimal `json:"total"`
		ItemCount int             `json:"item_count"`
		Items     []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	rec = h.do(http.MethodGet, "/api/v1/cart", nil)
	h.expect(rec, http.StatusOK)
	decodeData(t, rec, &cartView)
	if cartView.ItemCount != 2 || !cartView.Total.Equal(decimal.RequireFromString("19.00")) {
		t.Fatalf("unexpected cart: count=%d total=%s", cartView.ItemCount, cartView.Total)
	}

	h.expect(h.do(http.MethodPost, "/api/v1/checkout", nil), http.StatusCreated)
	h.expect(h.do(http.MethodPost, "/api/v1/checkout/payment", map[string]string{"method": "pix"}), http.StatusUnprocessableEntity)
	h.expect(h.do(http.MethodPost, "/api/v1/checkout/delivery-mode", map[string]string{"mode": "delivery"}), http.StatusOK)
	h.expect(h.do(http.MethodPost, "/api/v1/checkout/address", map[string]string{"address_id": "addr-1"}), http.StatusOK)
	h.expect(h.do(http.MethodPost, "/api/v1/checkout/payment", map[string]string{"method": "cash"}), http.StatusOK)
	h.expect(h.do(http.MethodPost, "/api/v1/checkout/change/answer", map[string]bool{"needs_change": true}), http.StatusOK)

	// 19.00 + 5.00 fee is due; 20 is short
	h.expect(h.do(http.MethodPost, "/api/v1/checkout/change/confirm", map[string]string{"amount": "20"}), http.StatusBadRequest)

	var change struct {
		Quote struct {
			Change decimal.Decimal `json:"change"`
		} `json:"quote"`
	}
	rec = h.do(http.MethodPost, "/api/v1/checkout/change/confirm", map[string]string{"amount": "50"})
	h.expect(rec, http.StatusOK)
	decodeData(t, rec, &change)
	if !change.Quote.Change.Equal(decimal.RequireFromString("26.00")) {
		t.Fatalf("expected 26.00 change, got %s", change.Quote.Change)
	}

	var order orders.Order
	rec = h.do(http.MethodPost, "/api/v1/checkout/submit", nil)
	h.expect(rec, http.StatusCreated)
	decodeData(t, rec, &order)
	if order.ID != "order-1" {
		t.Fatalf("unexpected order %+v", order)
	}
	if len(h.gateway.submitted) != 1 {
		t.Fatalf("expected one submission, got %d", len(h.gateway.submitted))
	}

	rec = h.do(http.MethodGet, "/api/v1/cart", nil)
	decodeData(t, rec, &cartView)
	if cartView.ItemCount != 0 {
		t.Fatalf("expected cart cleared after submit")
	}

	h.expect(h.do(http.MethodGet, "/api/v1/tracking", nil), http.StatusOK)
	h.expect(h.do(http.MethodDelete, "/api/v1/tracking", nil), http.StatusNoContent)
	h.expect(h.do(http.MethodGet, "/api/v1/tracking", nil), http.StatusNotFound)
}
