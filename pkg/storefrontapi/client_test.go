package storefrontapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-engine/internal/orders"
	"github.com/angelmondragon/storefront-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/types"
	"github.com/shopspring/decimal"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("http://shop.test/api/", WithAPIKey("secret"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient("  "); !errors.Is(err, errBaseURLRequired) {
		t.Fatalf("expected base url error, got %v", err)
	}
}

func TestListAddressesUnwrapsEnvelope(t *testing.T) {
	var capturedURL, capturedAuth string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedAuth = req.Header.Get("Authorization")
		return jsonResponse(http.StatusOK, `{"data":[{"id":"a1","street":"Rua das Flores","district":"Centro","is_default":true}]}`), nil
	})

	addrs, err := client.ListAddresses(context.Background(), "client 7")
	if err != nil {
		t.Fatalf("list addresses: %v", err)
	}
	if capturedURL != "http://shop.test/api/clients/client%207/addresses" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", capturedAuth)
	}
	if len(addrs) != 1 || addrs[0].Street != "Rua das Flores" || !addrs[0].IsDefault {
		t.Fatalf("unexpected addresses %+v", addrs)
	}
}

func TestListDistrictsBareArray(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `[{"name":"Centro","delivery_fee":"5.50"},{"name":"Jardim","delivery_fee":7}]`), nil
	})

	districts, err := client.ListDistricts(context.Background())
	if err != nil {
		t.Fatalf("list districts: %v", err)
	}
	if len(districts) != 2 || !districts[0].DeliveryFee.Equal(decimal.RequireFromString("5.50")) || !districts[1].DeliveryFee.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("unexpected districts %+v", districts)
	}
}

func TestSubmitOrderSendsPayloadAndRequiresCode(t *testing.T) {
	var payload map[string]any
	calls := 0
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		calls++
		if req.Method != http.MethodPost || req.URL.Path != "/api/orders" {
			t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
		}
		body, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if calls == 1 {
			return jsonResponse(http.StatusCreated, `{"data":{"id":"o-1","code":"A17","status":"aguardando_aceite","total":"35.00"}}`), nil
		}
		return jsonResponse(http.StatusCreated, `{"id":"o-2","status":"aguardando_aceite"}`), nil
	})

	req := orders.Request{
		ClientID:      "c-1",
		Lines:         []orders.RequestLine{{Name: "Burger", Quantity: 1, UnitPrice: decimal.RequireFromString("35.00")}},
		Total:         decimal.RequireFromString("35.00"),
		PaymentMethod: enums.PaymentMethodCash,
		NeedsChange:   true,
		ChangeFor:     decimal.NewNullDecimal(decimal.RequireFromString("40.00")),
		DeliveryMode:  enums.DeliveryModePickup,
	}
	order, err := client.SubmitOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if order.Code != "A17" || order.ID != "o-1" {
		t.Fatalf("unexpected order %+v", order)
	}
	if payload["payment_method"] != "cash" || payload["needs_change"] != true || payload["change_for_amount"] != "40" {
		t.Fatalf("unexpected payload %v", payload)
	}

	if _, err := client.SubmitOrder(context.Background(), req); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error for missing code, got %v", err)
	}
}

func TestStatusErrorsMapToCodes(t *testing.T) {
	tests := []struct {
		status int
		body   string
		code   pkgerrors.Code
	}{
		{status: http.StatusNotFound, body: `{"message":"order not found"}`, code: pkgerrors.CodeNotFound},
		{status: http.StatusUnprocessableEntity, body: `{"error":{"message":"street is required"}}`, code: pkgerrors.CodeValidation},
		{status: http.StatusBadGateway, body: `upstream down`, code: pkgerrors.CodeDependency},
	}

	for _, tt := range tests {
		client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
			return jsonResponse(tt.status, tt.body), nil
		})
		_, err := client.GetOrderStatus(context.Background(), "o-1")
		if !pkgerrors.IsCode(err, tt.code) {
			t.Fatalf("status %d: expected %s, got %v", tt.status, tt.code, err)
		}
	}

	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnprocessableEntity, `{"error":{"message":"street is required"}}`), nil
	})
	_, err := client.CreateAddress(context.Background(), "c-1", types.AddressInput{Street: "x", District: "y"}, true)
	if typed := pkgerrors.As(err); typed == nil || typed.Message() != "street is required" {
		t.Fatalf("expected upstream message, got %v", err)
	}
}

func TestTransportErrorIsDependency(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	if _, err := client.GetClubConfig(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestSearchStreetsQuery(t *testing.T) {
	var rawQuery string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		rawQuery = req.URL.RawQuery
		return jsonResponse(http.StatusOK, `{"data":[{"name":"Rua Augusta","district":"Consolação"}]}`), nil
	})
	streets, err := client.SearchStreets(context.Background(), " rua a ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if rawQuery != "q=rua+a" {
		t.Fatalf("unexpected query %q", rawQuery)
	}
	if len(streets) != 1 || streets[0].District != "Consolação" {
		t.Fatalf("unexpected streets %+v", streets)
	}
}
