package enums

import "fmt"

// CheckoutStep is a position in the checkout sequence.
type CheckoutStep string

const (
	CheckoutStepDeliveryType CheckoutStep = "delivery_type"
	CheckoutStepAddress      CheckoutStep = "address"
	CheckoutStepPayment      CheckoutStep = "payment"
	CheckoutStepChange       CheckoutStep = "change"
	CheckoutStepReady        CheckoutStep = "ready"
	CheckoutStepSubmitted    CheckoutStep = "submitted"
)

var validCheckoutSteps = []CheckoutStep{
	CheckoutStepDeliveryType,
	CheckoutStepAddress,
	CheckoutStepPayment,
	CheckoutStepChange,
	CheckoutStepReady,
	CheckoutStepSubmitted,
}

// String implements fmt.Stringer.
func (v CheckoutStep) String() string {
	return string(v)
}

// IsValid reports whether the value is a known CheckoutStep.
func (v CheckoutStep) IsValid() bool {
	for _, candidate := range validCheckoutSteps {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseCheckoutStep converts raw input into a CheckoutStep.
func ParseCheckoutStep(value string) (CheckoutStep, error) {
	for _, candidate := range validCheckoutSteps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout step %q", value)
}
