package cart

import (
	"strings"
	"unicode/utf8"

	"github.com/angelmondragon/storefront-engine/internal/catalog"
	"github.com/angelmondragon/storefront-engine/internal/pricing"
	"github.com/angelmondragon/storefront-engine/pkg/enums"
	"github.com/shopspring/decimal"
)

// MaxObservationLength caps the free-text note a customer can attach to a line.
const MaxObservationLength = 200

// LineItem is one priced, quantified entry in the cart.
type LineItem struct {
	ID             string              `json:"id,omitempty"`
	Product        catalog.Product     `json:"product"`
	Quantity       int                 `json:"quantity"`
	ComboType      enums.ComboType     `json:"combo_type,omitempty"`
	Selections     pricing.Selections  `json:"step_selections,omitempty"`
	FinalUnitPrice decimal.NullDecimal `json:"final_unit_price"`
	Observation    string              `json:"observation,omitempty"`
}

// NormalizeObservation trims the note and caps it at MaxObservationLength runes.
// An empty result means the line carries no observation.
func NormalizeObservation(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= MaxObservationLength {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:MaxObservationLength]))
}

// Key identifies the entry: the synthetic id, or the product id for entries
// restored without one.
func (l LineItem) Key() string {
	if l.ID != "" {
		return l.ID
	}
	return l.Product.ID
}

// HasObservation reports whether the line carries a customer note.
func (l LineItem) HasObservation() bool {
	return l.Observation != ""
}

// UnitPrice returns the frozen configured price, falling back to the sale price.
func (l LineItem) UnitPrice() decimal.Decimal {
	if l.FinalUnitPrice.Valid {
		return l.FinalUnitPrice.Decimal
	}
	return pricing.Round(l.Product.SalePrice)
}

// LineTotal is UnitPrice times Quantity.
func (l LineItem) LineTotal() decimal.Decimal {
	return pricing.LineTotal(l.UnitPrice(), l.Quantity)
}

func (l LineItem) clone() LineItem {
	out := l
	if l.Selections != nil {
		out.Selections = l.Selections.Clone()
	}
	return out
}
