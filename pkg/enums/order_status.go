package enums

import (
	"fmt"
	"strings"
)

// OrderStatus is the raw status vocabulary reported by the ordering backend.
type OrderStatus string

const (
	OrderStatusAwaitingAcceptance OrderStatus = "aguardando_aceite"
	OrderStatusAccepted           OrderStatus = "aceito"
	OrderStatusInProduction       OrderStatus = "producao"
	OrderStatusReady              OrderStatus = "pronto"
	OrderStatusPickedUp           OrderStatus = "retirado"
	OrderStatusCompleted          OrderStatus = "concluido"
	OrderStatusInBag              OrderStatus = "na_bag"
	OrderStatusEnRoute            OrderStatus = "em_rota"
	OrderStatusDelivered          OrderStatus = "entregue"
	OrderStatusCancelled          OrderStatus = "cancelado"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusAwaitingAcceptance,
	OrderStatusAccepted,
	OrderStatusInProduction,
	OrderStatusReady,
	OrderStatusPickedUp,
	OrderStatusCompleted,
	OrderStatusInBag,
	OrderStatusEnRoute,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (v OrderStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known OrderStatus.
func (v OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into a OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// NormalizeOrderStatus trims and lower-cases a backend status without validating it;
// the backend vocabulary is open-ended.
func NormalizeOrderStatus(value string) OrderStatus {
	return OrderStatus(strings.ToLower(strings.TrimSpace(value)))
}
