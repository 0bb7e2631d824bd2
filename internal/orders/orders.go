package orders

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-engine/internal/cart"
	"github.com/angelmondragon/storefront-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// Gateway is the order backend consumed by checkout and tracking.
type Gateway interface {
	SubmitOrder(ctx context.Context, req Request) (Order, error)
	GetOrderStatus(ctx context.Context, orderID string) (Order, error)
}

// RequestLine is a cart line denormalized for submission.
type RequestLine struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Observation string          `json:"observation,omitempty"`
	ComboType   enums.ComboType `json:"combo_type,omitempty"`
	Options     []string        `json:"options,omitempty"`
}

// Request is the immutable order payload assembled at checkout.
type Request struct {
	ClientID      string              `json:"client_id"`
	Lines         []RequestLine       `json:"items"`
	Total         decimal.Decimal     `json:"total"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	NeedsChange   bool                `json:"needs_change,omitempty"`
	ChangeFor     decimal.NullDecimal `json:"change_for_amount"`
	DeliveryMode  enums.DeliveryMode  `json:"delivery_mode"`
	Address       *types.Address      `json:"address,omitempty"`
	DeliveryFee   decimal.Decimal     `json:"delivery_fee"`
}

// AmountDue is the cart total plus the delivery fee.
func (r Request) AmountDue() decimal.Decimal {
	return r.Total.Add(r.DeliveryFee)
}

// Validate checks the structural rules of a request before it leaves the process.
func (r Request) Validate() error {
	switch {
	case strings.TrimSpace(r.ClientID) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "client is required")
	case len(r.Lines) == 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	case !r.PaymentMethod.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	case !r.DeliveryMode.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery mode is required")
	case r.DeliveryMode == enums.DeliveryModeDelivery && r.Address == nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	case r.DeliveryMode == enums.DeliveryModePickup && r.Address != nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "pickup orders carry no address")
	case r.PaymentMethod != enums.PaymentMethodCash && (r.NeedsChange || r.ChangeFor.Valid):
		return pkgerrors.New(pkgerrors.CodeValidation, "change is only available for cash payments")
	case r.NeedsChange && (!r.ChangeFor.Valid || !r.ChangeFor.Decimal.GreaterThan(r.AmountDue())):
		return pkgerrors.New(pkgerrors.CodeValidation, "change amount must be greater than the amount due")
	}
	return nil
}

// BuildLines denormalizes cart entries to name, quantity, unit price and observation.
func BuildLines(items []cart.LineItem) []RequestLine {
	lines := make([]RequestLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, RequestLine{
			ProductID:   item.Product.ID,
			Name:        item.Product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice(),
			Observation: item.Observation,
			ComboType:   item.ComboType,
			Options:     optionNames(item),
		})
	}
	return lines
}

func optionNames(item cart.LineItem) []string {
	var names []string
	for _, step := range item.Product.RelevantSteps(item.ComboType) {
		for _, id := range item.Selections[step.ID] {
			if stepItem, ok := step.Item(id); ok && stepItem.ProductName != "" {
				names = append(names, stepItem.ProductName)
			}
		}
	}
	return names
}

// OrderLine is an item as echoed back by the order backend.
type OrderLine struct {
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Observation string          `json:"observation,omitempty"`
}

// Order is the backend's view of a submitted order. Status is free-form.
type Order struct {
	ID                 string              `json:"id"`
	Code               string              `json:"code"`
	Status             string              `json:"status"`
	Items              []OrderLine         `json:"items,omitempty"`
	Total              decimal.Decimal     `json:"total"`
	DeliveryFee        decimal.Decimal     `json:"delivery_fee"`
	DeliveryMode       enums.DeliveryMode  `json:"delivery_mode"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method,omitempty"`
	ChangeFor          decimal.NullDecimal `json:"change_for_amount"`
	Address            *types.Address      `json:"address,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	CancellationReason string              `json:"cancellation_reason,omitempty"`
	CourierName        string              `json:"courier_name,omitempty"`
	TrackingURL        string              `json:"tracking_url,omitempty"`
}

// NormalizedStatus trims and lower-cases the backend status.
func (o Order) NormalizedStatus() enums.OrderStatus {
	return enums.NormalizeOrderStatus(o.Status)
}

// IsCancelled reports whether the backend cancelled the order.
func (o Order) IsCancelled() bool {
	return o.NormalizedStatus() == enums.OrderStatusCancelled || strings.TrimSpace(o.CancellationReason) != ""
}

// TrackingID returns the identifier used to poll the order, preferring the id.
func (o Order) TrackingID() string {
	if o.ID != "" {
		return o.ID
	}
	return o.Code
}
