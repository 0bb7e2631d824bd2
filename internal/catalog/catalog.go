package catalog

import (
	"github.com/angelmondragon/storefront-engine/pkg/enums"
	"github.com/shopspring/decimal"
)

// PlaceholderPhotoURL is shown for step items whose product cannot be resolved.
const PlaceholderPhotoURL = "/static/placeholder-product.png"

// Product is a read-only menu entry.
type Product struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Description    string              `json:"description,omitempty"`
	Category       string              `json:"category,omitempty"`
	Type           enums.ProductType   `json:"product_type"`
	SalePrice      decimal.Decimal     `json:"sale_price"`
	SimplePrice    decimal.NullDecimal `json:"simple_price"`
	PhotoURL       string              `json:"photo_url,omitempty"`
	SimplePhotoURL string              `json:"simple_photo_url,omitempty"`
	ComboPhotoURL  string              `json:"combo_photo_url,omitempty"`
	Steps          []OrderStep         `json:"order_steps,omitempty"`
}

// OrderStep is one configuration stage of a composite product.
type OrderStep struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	ComboOnly       bool                  `json:"combo_only"`
	MinSelections   int                   `json:"min_selections"`
	MaxSelections   int                   `json:"max_selections"`
	CalculationType enums.CalculationType `json:"calculation_type"`
	Items           []StepItem            `json:"items"`
}

// StepItem references another product by id; the reference is never owned.
type StepItem struct {
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	PriceOverride decimal.Decimal `json:"price_override"`
}

// HasVariantChoice reports whether the customer must pick simple or combo.
func (p Product) HasVariantChoice() bool {
	return p.Type == enums.ProductTypeCombo
}

// RelevantSteps returns the steps that apply to the chosen variant. Combo-only
// steps are kept only for the combo variant.
func (p Product) RelevantSteps(comboType enums.ComboType) []OrderStep {
	steps := make([]OrderStep, 0, len(p.Steps))
	for _, step := range p.Steps {
		if step.ComboOnly && comboType != enums.ComboTypeCombo {
			continue
		}
		steps = append(steps, step)
	}
	return steps
}

// PhotoFor picks the variant photo, falling back to the main photo.
func (p Product) PhotoFor(comboType enums.ComboType) string {
	switch comboType {
	case enums.ComboTypeCombo:
		if p.ComboPhotoURL != "" {
			return p.ComboPhotoURL
		}
	case enums.ComboTypeSimple:
		if p.SimplePhotoURL != "" {
			return p.SimplePhotoURL
		}
	}
	return p.PhotoURL
}

// Unbounded reports whether the step has no selection cap.
func (s OrderStep) Unbounded() bool {
	return s.MaxSelections <= 0
}

// Item finds a step item by product id.
func (s OrderStep) Item(productID string) (StepItem, bool) {
	for _, item := range s.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return StepItem{}, false
}

// ItemDisplay is what the UI renders for a step item.
type ItemDisplay struct {
	ProductID     string          `json:"product_id"`
	Name          string          `json:"name"`
	PhotoURL      string          `json:"photo_url"`
	PriceOverride decimal.Decimal `json:"price_override"`
	Included      bool            `json:"included"`
	Resolved      bool            `json:"resolved"`
}

// Index is a read-only lookup table from product id to product.
type Index struct {
	byID map[string]Product
}

// NewIndex builds an index over the provided products.
func NewIndex(products []Product) Index {
	byID := make(map[string]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return Index{byID: byID}
}

// Get returns the product for id.
func (i Index) Get(id string) (Product, bool) {
	p, ok := i.byID[id]
	return p, ok
}

// Len reports the number of indexed products.
func (i Index) Len() int {
	return len(i.byID)
}

// Display resolves a step item for rendering. Unknown products degrade to the
// step item's own name and a placeholder photo; pricing never depends on this.
func (i Index) Display(item StepItem) ItemDisplay {
	display := ItemDisplay{
		ProductID:     item.ProductID,
		Name:          item.ProductName,
		PhotoURL:      PlaceholderPhotoURL,
		PriceOverride: item.PriceOverride,
		Included:      item.PriceOverride.IsZero(),
	}
	if p, ok := i.byID[item.ProductID]; ok {
		display.Resolved = true
		if display.Name == "" {
			display.Name = p.Name
		}
		if p.PhotoURL != "" {
			display.PhotoURL = p.PhotoURL
		}
	}
	return display
}

// Menu is the catalog snapshot a session works against.
type Menu struct {
	Products []Product `json:"products"`
	Index    Index     `json:"-"`
}

// NewMenu indexes the products.
func NewMenu(products []Product) *Menu {
	return &Menu{Products: products, Index: NewIndex(products)}
}

// Product looks up a product on the menu.
func (m *Menu) Product(id string) (Product, bool) {
	if m == nil {
		return Product{}, false
	}
	return m.Index.Get(id)
}
