package enums

import "fmt"

// CalculationType controls how an order step folds the overrides of its selected items.
type CalculationType string

const (
	CalculationTypeSum CalculationType = "sum"
	CalculationTypeMax CalculationType = "max"
)

var validCalculationTypes = []CalculationType{
	CalculationTypeSum,
	CalculationTypeMax,
}

// String implements fmt.Stringer.
func (v CalculationType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known CalculationType.
func (v CalculationType) IsValid() bool {
	for _, candidate := range validCalculationTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseCalculationType converts raw input into a CalculationType.
func ParseCalculationType(value string) (CalculationType, error) {
	for _, candidate := range validCalculationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid calculation type %q", value)
}
