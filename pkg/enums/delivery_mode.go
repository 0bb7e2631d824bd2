package enums

import "fmt"

// DeliveryMode is the fulfillment mode chosen at checkout.
type DeliveryMode string

const (
	DeliveryModePickup   DeliveryMode = "pickup"
	DeliveryModeDelivery DeliveryMode = "delivery"
)

var validDeliveryModes = []DeliveryMode{
	DeliveryModePickup,
	DeliveryModeDelivery,
}

// String implements fmt.Stringer.
func (v DeliveryMode) String() string {
	return string(v)
}

// IsValid reports whether the value is a known DeliveryMode.
func (v DeliveryMode) IsValid() bool {
	for _, candidate := range validDeliveryModes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseDeliveryMode converts raw input into a DeliveryMode.
func ParseDeliveryMode(value string) (DeliveryMode, error) {
	for _, candidate := range validDeliveryModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery mode %q", value)
}
