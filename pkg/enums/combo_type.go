package enums

import "fmt"

// ComboType is the variant resolved for a cart line. The zero value means the
// product offers no variant choice.
type ComboType string

const (
	ComboTypeNone   ComboType = ""
	ComboTypeSimple ComboType = "simple"
	ComboTypeCombo  ComboType = "combo"
)

// String implements fmt.Stringer.
func (c ComboType) String() string {
	return string(c)
}

// IsValid reports whether the value is a selectable variant.
func (c ComboType) IsValid() bool {
	return c == ComboTypeSimple || c == ComboTypeCombo
}

// ParseComboType converts raw input into a ComboType. Empty input maps to ComboTypeNone.
func ParseComboType(value string) (ComboType, error) {
	switch ComboType(value) {
	case ComboTypeNone, ComboTypeSimple, ComboTypeCombo:
		return ComboType(value), nil
	}
	return "", fmt.Errorf("invalid combo type %q", value)
}
