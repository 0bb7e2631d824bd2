package pricing

import (
	"fmt"

	"github.com/angelmondragon/storefront-engine/internal/catalog"
	"github.com/angelmondragon/storefront-engine/pkg/enums"
	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of fractional digits every derived price is rounded to.
const CurrencyPlaces int32 = 2

// DefaultSimpleRatio is applied to the combo price when a product has no explicit simple price.
var DefaultSimpleRatio = decimal.RequireFromString("0.70")

// Rules holds the pricing parameters shared by every configurator in a session.
type Rules struct {
	SimpleRatio decimal.Decimal
}

// NewRules validates the ratio and returns a rule set.
func NewRules(simpleRatio decimal.Decimal) (Rules, error) {
	if simpleRatio.LessThanOrEqual(decimal.Zero) || simpleRatio.GreaterThan(decimal.NewFromInt(1)) {
		return Rules{}, fmt.Errorf("simple ratio must be within (0, 1], got %s", simpleRatio)
	}
	return Rules{SimpleRatio: simpleRatio}, nil
}

// DefaultRules uses DefaultSimpleRatio.
func DefaultRules() Rules {
	return Rules{SimpleRatio: DefaultSimpleRatio}
}

// Round rounds a monetary value to cents.
func Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(CurrencyPlaces)
}

func (r Rules) ratio() decimal.Decimal {
	if r.SimpleRatio.IsZero() {
		return DefaultSimpleRatio
	}
	return r.SimpleRatio
}

// SimplePrice returns the explicit simple price or the ratio-derived default.
func (r Rules) SimplePrice(product catalog.Product) decimal.Decimal {
	if product.SimplePrice.Valid {
		return Round(product.SimplePrice.Decimal)
	}
	return Round(product.SalePrice.Mul(r.ratio()))
}

// BasePrice is the price of the chosen variant before step extras.
func (r Rules) BasePrice(product catalog.Product, comboType enums.ComboType) decimal.Decimal {
	if !product.HasVariantChoice() || comboType == enums.ComboTypeCombo {
		return Round(product.SalePrice)
	}
	return r.SimplePrice(product)
}

// StepContribution folds the overrides of the selected items according to the
// step's calculation type. Ids that are not items of the step contribute nothing.
func StepContribution(step catalog.OrderStep, selected []string) decimal.Decimal {
	total := decimal.Zero
	switch step.CalculationType {
	case enums.CalculationTypeSum:
		for _, id := range selected {
			if item, ok := step.Item(id); ok {
				total = total.Add(item.PriceOverride)
			}
		}
	case enums.CalculationTypeMax:
		found := false
		for _, id := range selected {
			item, ok := step.Item(id)
			if !ok {
				continue
			}
			if !found || item.PriceOverride.GreaterThan(total) {
				total = item.PriceOverride
				found = true
			}
		}
	}
	return Round(total)
}

// UnitPrice is the base price plus the contribution of every relevant step.
func (r Rules) UnitPrice(product catalog.Product, comboType enums.ComboType, steps []catalog.OrderStep, selections Selections) decimal.Decimal {
	unit := r.BasePrice(product, comboType)
	for _, step := range steps {
		unit = unit.Add(StepContribution(step, selections[step.ID]))
	}
	return Round(unit)
}

// Price pairs a unit price with the line total for the current quantity.
type Price struct {
	Unit decimal.Decimal `json:"unit_price"`
	Line decimal.Decimal `json:"line_total"`
}

// LineTotal multiplies a frozen unit price by the quantity.
func LineTotal(unit decimal.Decimal, quantity int) decimal.Decimal {
	if quantity < 0 {
		quantity = 0
	}
	return Round(unit.Mul(decimal.NewFromInt(int64(quantity))))
}
