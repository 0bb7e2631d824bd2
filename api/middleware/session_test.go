package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-engine/internal/catalog"
	"github.com/angelmondragon/storefront-engine/internal/orders"
	"github.com/angelmondragon/storefront-engine/internal/session"
	"github.com/angelmondragon/storefront-engine/pkg/types"
)

type emptyCatalog struct{}

func (emptyCatalog) Menu(context.Context) (*catalog.Menu, error) { return catalog.NewMenu(nil), nil }
func (emptyCatalog) Product(context.Context, string) (catalog.Product, error) {
	return catalog.Product{}, nil
}

type noAddresses struct{}

func (noAddresses) List(context.Context, string) []types.Address { return nil }
func (noAddresses) Create(context.Context, string, types.AddressInput) (types.Address, error) {
	return types.Address{}, nil
}
func (noAddresses) Update(context.Context, string, string, types.AddressPatch) (types.Address, error) {
	return types.Address{}, nil
}
func (noAddresses) Delete(context.Context, string, string) error { return nil }
func (noAddresses) SetDefault(context.Context, string, string) ([]types.Address, error) {
	return nil, nil
}
func (noAddresses) Districts(context.Context) []types.District        { return nil }
func (noAddresses) SearchStreets(context.Context, string) []types.Street { return nil }

type noGateway struct{}

func (noGateway) SubmitOrder(context.Context, orders.Request) (orders.Order, error) {
	return orders.Order{}, nil
}
func (noGateway) GetOrderStatus(context.Context, string) (orders.Order, error) {
	return orders.Order{}, nil
}

func newTestManager(t *testing.T) *session.Manager {
	t.Helper()
	m, err := session.NewManager(session.Params{
		Catalog:   emptyCatalog{},
		Addresses: noAddresses{},
		Gateway:   noGateway{},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m
}

func TestSessionMiddlewareCreatesAndEchoesID(t *testing.T) {
	m := newTestManager(t)
	var seen string
	handler := Session(m, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()) == nil {
			t.Fatalf("expected session in context")
		}
		seen = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if seen == "" {
		t.Fatalf("expected a generated session id")
	}
	if got := rec.Header().Get(SessionHeader); got != seen {
		t.Fatalf("expected header %q, got %q", seen, got)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(SessionHeader, seen)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(SessionHeader); got != seen {
		t.Fatalf("expected session reuse, got %q", got)
	}
	if m.Len() != 1 {
		t.Fatalf("expected one live session, got %d", m.Len())
	}
}

func TestSessionMiddlewareWithoutManager(t *testing.T) {
	handler := Session(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRequestIDPropagates(t *testing.T) {
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(requestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "req-1" {
		t.Fatalf("expected request id echoed, got %q", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}

	req = httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(requestIDHeader, "bad id\nwith newline")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got == "" || strings.Contains(got, " ") {
		t.Fatalf("expected untrusted request id to be replaced, got %q", got)
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRecovererRepanicsOnAbort(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
