package orders

import (
	"testing"

	"github.com/angelmondragon/storefront-engine/internal/cart"
	"github.com/angelmondragon/storefront-engine/internal/catalog"
	"github.com/angelmondragon/storefront-engine/internal/pricing"
	"github.com/angelmondragon/storefront-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/types"
	"github.com/shopspring/decimal"
)

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func validRequest() Request {
	return Request{
		ClientID:      "client-1",
		Lines:         []RequestLine{{Name: "Burger", Quantity: 1, UnitPrice: money("35.00")}},
		Total:         money("35.00"),
		PaymentMethod: enums.PaymentMethodCash,
		DeliveryMode:  enums.DeliveryModePickup,
	}
}

func TestBuildLinesDenormalizesCart(t *testing.T) {
	t.Parallel()

	product := catalog.Product{
		ID:        "burger",
		Name:      "Burger",
		Type:      enums.ProductTypeCombo,
		SalePrice: money("20.00"),
		Steps: []catalog.OrderStep{{
			ID:              "extras",
			CalculationType: enums.CalculationTypeSum,
			Items: []catalog.StepItem{
				{ProductID: "A", ProductName: "Bacon", PriceOverride: money("2.00")},
				{ProductID: "B", ProductName: "Onion"},
			},
		}},
	}
	items := []cart.LineItem{
		{
			ID:             "line-1",
			Product:        product,
			Quantity:       2,
			ComboType:      enums.ComboTypeCombo,
			Selections:     pricing.Selections{"extras": {"B", "A"}},
			FinalUnitPrice: decimal.NewNullDecimal(money("22.00")),
			Observation:    "well done",
		},
		{Product: catalog.Product{ID: "soda", Name: "Soda", SalePrice: money("6.00")}, Quantity: 1},
	}

	lines := BuildLines(items)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	first := lines[0]
	if first.Name != "Burger" || first.Quantity != 2 || !first.UnitPrice.Equal(money("22.00")) || first.Observation != "well done" {
		t.Fatalf("unexpected first line %+v", first)
	}
	if len(first.Options) != 2 || first.Options[0] != "Onion" || first.Options[1] != "Bacon" {
		t.Fatalf("unexpected options %v", first.Options)
	}
	if !lines[1].UnitPrice.Equal(money("6.00")) {
		t.Fatalf("fallback unit price = %s", lines[1].UnitPrice)
	}
}

func TestRequestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Request)
		ok     bool
	}{
		{name: "valid pickup", mutate: func(*Request) {}, ok: true},
		{name: "missing client", mutate: func(r *Request) { r.ClientID = "" }},
		{name: "no lines", mutate: func(r *Request) { r.Lines = nil }},
		{name: "delivery without address", mutate: func(r *Request) { r.DeliveryMode = enums.DeliveryModeDelivery }},
		{name: "pickup with address", mutate: func(r *Request) { r.Address = &types.Address{Street: "Rua A", District: "Centro"} }},
		{name: "change on pix", mutate: func(r *Request) {
			r.PaymentMethod = enums.PaymentMethodPix
			r.NeedsChange = true
			r.ChangeFor = decimal.NewNullDecimal(money("50"))
		}},
		{name: "change below due", mutate: func(r *Request) {
			r.NeedsChange = true
			r.ChangeFor = decimal.NewNullDecimal(money("30"))
		}},
		{name: "change equal to due", mutate: func(r *Request) {
			r.NeedsChange = true
			r.ChangeFor = decimal.NewNullDecimal(money("35"))
		}},
		{name: "change above due", mutate: func(r *Request) {
			r.NeedsChange = true
			r.ChangeFor = decimal.NewNullDecimal(money("40"))
		}, ok: true},
	}

	for _, tt := range tests {
		req := validRequest()
		tt.mutate(&req)
		err := req.Validate()
		if tt.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.ok && !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", tt.name, err)
		}
	}
}

func TestOrderStatusHelpers(t *testing.T) {
	t.Parallel()

	o := Order{ID: "", Code: "A12", Status: "  PRONTO "}
	if o.NormalizedStatus() != enums.OrderStatusReady {
		t.Fatalf("normalized = %q", o.NormalizedStatus())
	}
	if o.TrackingID() != "A12" {
		t.Fatalf("tracking id = %q", o.TrackingID())
	}
	if o.IsCancelled() {
		t.Fatal("unexpected cancellation")
	}
	o.CancellationReason = "store closed"
	if !o.IsCancelled() {
		t.Fatal("expected cancellation")
	}
}
