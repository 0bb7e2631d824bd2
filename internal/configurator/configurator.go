package configurator

import (
	"fmt"

	"github.com/angelmondragon/storefront-engine/internal/cart"
	"github.com/angelmondragon/storefront-engine/internal/catalog"
	"github.com/angelmondragon/storefront-engine/internal/pricing"
	"github.com/angelmondragon/storefront-engine/pkg/enums"
	"github.com/shopspring/decimal"
)

// Configurator drives one product instance through its steps. It is not safe
// for concurrent use; callers serialize access per session.
type Configurator struct {
	product catalog.Product
	rules   pricing.Rules
	index   catalog.Index
	state   State
}

// New starts configuring product. The index resolves step items for display only.
func New(product catalog.Product, rules pricing.Rules, index catalog.Index) (*Configurator, error) {
	if product.ID == "" {
		return nil, fmt.Errorf("product id required")
	}
	return &Configurator{
		product: product,
		rules:   rules,
		index:   index,
		state:   Initial(product),
	}, nil
}

// Product returns the product being configured.
func (c *Configurator) Product() catalog.Product {
	return c.product
}

// State returns a copy of the current state.
func (c *Configurator) State() State {
	s := c.state
	s.Selections = c.state.Selections.Clone()
	return s
}

func (c *Configurator) apply(next State, err error) error {
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

func (c *Configurator) ChooseVariant(comboType enums.ComboType) error {
	return c.apply(ChooseVariant(c.product, c.state, comboType))
}

func (c *Configurator) CanAdvance() bool {
	return CanAdvance(c.product, c.state)
}

// Advance moves forward. When it commits from the summary it returns the
// finalized line item; otherwise the item is nil.
func (c *Configurator) Advance() (*cart.LineItem, error) {
	if err := c.apply(Advance(c.product, c.state)); err != nil {
		return nil, err
	}
	if !c.state.Committed {
		return nil, nil
	}
	item := LineItem(c.rules, c.product, c.state)
	return &item, nil
}

func (c *Configurator) Retreat() error {
	return c.apply(Retreat(c.product, c.state))
}

func (c *Configurator) JumpTo(position int) error {
	return c.apply(JumpTo(c.product, c.state, position))
}

// Toggle reports whether the selection changed.
func (c *Configurator) Toggle(stepID, productID string) (bool, error) {
	next, changed, err := Toggle(c.product, c.state, stepID, productID)
	if err != nil {
		return false, err
	}
	c.state = next
	return changed, nil
}

func (c *Configurator) Increment() error {
	return c.apply(Increment(c.state))
}

func (c *Configurator) Decrement() error {
	return c.apply(Decrement(c.state))
}

func (c *Configurator) SetObservation(text string) error {
	return c.apply(SetObservation(c.state, text))
}

// Price returns the unit price and line total of the current state.
func (c *Configurator) Price() pricing.Price {
	return UnitPrice(c.rules, c.product, c.state)
}

// VariantOption is one choice on the variant screen.
type VariantOption struct {
	ComboType enums.ComboType `json:"combo_type"`
	BasePrice decimal.Decimal `json:"base_price"`
	PhotoURL  string          `json:"photo_url,omitempty"`
	Selected  bool            `json:"selected"`
}

// ItemView is a step item as rendered on a step screen.
type ItemView struct {
	catalog.ItemDisplay
	Selected bool `json:"selected"`
	Disabled bool `json:"disabled"`
}

// StepView describes the current step screen.
type StepView struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	Number          int                   `json:"number"`
	MinSelections   int                   `json:"min_selections"`
	MaxSelections   int                   `json:"max_selections"`
	CalculationType enums.CalculationType `json:"calculation_type"`
	Selected        int                   `json:"selected"`
	Contribution    decimal.Decimal       `json:"contribution"`
	Items           []ItemView            `json:"items"`
}

// SummaryLine lists the chosen item names of one step on the summary screen.
type SummaryLine struct {
	Position int      `json:"position"`
	StepID   string   `json:"step_id"`
	StepName string   `json:"step_name"`
	Items    []string `json:"items"`
}

// View is everything a client needs to render the configurator after a change.
type View struct {
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	PhotoURL      string          `json:"photo_url,omitempty"`
	Phase         Phase           `json:"phase"`
	Position      int             `json:"position"`
	StepCount     int             `json:"step_count"`
	ComboType     enums.ComboType `json:"combo_type,omitempty"`
	Variants      []VariantOption `json:"variants,omitempty"`
	Step          *StepView       `json:"step,omitempty"`
	Summary       []SummaryLine   `json:"summary,omitempty"`
	Quantity      int             `json:"quantity"`
	Observation   string          `json:"observation,omitempty"`
	CanAdvance    bool            `json:"can_advance"`
	CanRetreat    bool            `json:"can_retreat"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
	AdvanceReason string          `json:"advance_reason,omitempty"`
}

// View renders the current state.
func (c *Configurator) View() View {
	s := c.state
	steps := relevantSteps(c.product, s)
	price := c.Price()
	v := View{
		ProductID:   c.product.ID,
		ProductName: c.product.Name,
		PhotoURL:    c.product.PhotoFor(s.ComboType),
		Phase:       PhaseOf(c.product, s),
		Position:    s.Position,
		StepCount:   len(steps),
		ComboType:   s.ComboType,
		Quantity:    s.Quantity,
		Observation: s.Observation,
		CanAdvance:  CanAdvance(c.product, s),
		CanRetreat:  !s.Committed && s.Position > firstPosition(c.product),
		UnitPrice:   price.Unit,
		LineTotal:   price.Line,
	}
	if err := advanceBlocker(c.product, s); err != nil {
		v.AdvanceReason = err.Error()
	}

	switch v.Phase {
	case PhaseVariant:
		for _, ct := range []enums.ComboType{enums.ComboTypeSimple, enums.ComboTypeCombo} {
			v.Variants = append(v.Variants, VariantOption{
				ComboType: ct,
				BasePrice: c.rules.BasePrice(c.product, ct),
				PhotoURL:  c.product.PhotoFor(ct),
				Selected:  s.VariantChosen && s.ComboType == ct,
			})
		}
	case PhaseStep:
		step, _ := CurrentStep(c.product, s)
		v.Step = c.stepView(step, s)
	case PhaseSummary, PhaseCommitted:
		for i, step := range steps {
			line := SummaryLine{Position: i + 1, StepID: step.ID, StepName: step.Name}
			for _, id := range s.Selections[step.ID] {
				item, _ := step.Item(id)
				line.Items = append(line.Items, c.index.Display(item).Name)
			}
			v.Summary = append(v.Summary, line)
		}
	}
	return v
}

func (c *Configurator) stepView(step catalog.OrderStep, s State) *StepView {
	selected := s.Selections.Count(step.ID)
	atCapacity := !step.Unbounded() && step.MaxSelections > 1 && selected >= step.MaxSelections
	view := &StepView{
		ID:              step.ID,
		Name:            step.Name,
		Number:          s.Position,
		MinSelections:   step.MinSelections,
		MaxSelections:   step.MaxSelections,
		CalculationType: step.CalculationType,
		Selected:        selected,
		Contribution:    pricing.StepContribution(step, s.Selections[step.ID]),
		Items:           make([]ItemView, 0, len(step.Items)),
	}
	for _, item := range step.Items {
		isSelected := s.Selections.Contains(step.ID, item.ProductID)
		view.Items = append(view.Items, ItemView{
			ItemDisplay: c.index.Display(item),
			Selected:    isSelected,
			Disabled:    atCapacity && !isSelected,
		})
	}
	return view
}
