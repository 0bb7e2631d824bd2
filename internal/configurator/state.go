package configurator

import (
	"github.com/angelmondragon/storefront-engine/internal/cart"
	"github.com/angelmondragon/storefront-engine/internal/catalog"
	"github.com/angelmondragon/storefront-engine/internal/pricing"
	"github.com/angelmondragon/storefront-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/shopspring/decimal"
)

// Phase names the kind of screen a position corresponds to.
type Phase string

const (
	PhaseVariant   Phase = "variant"
	PhaseStep      Phase = "step"
	PhaseSummary   Phase = "summary"
	PhaseCommitted Phase = "committed"
)

// State is the serializable record of one product being configured. Position 0
// is the variant choice, 1..n the relevant steps and n+1 the summary.
type State struct {
	Position      int                `json:"position"`
	ComboType     enums.ComboType    `json:"combo_type,omitempty"`
	VariantChosen bool               `json:"variant_chosen"`
	Selections    pricing.Selections `json:"selections"`
	Quantity      int                `json:"quantity"`
	Observation   string             `json:"observation,omitempty"`
	Committed     bool               `json:"committed"`
}

// Initial returns the starting state for product. Products without a variant
// choice skip position 0 and carry no combo type.
func Initial(product catalog.Product) State {
	s := State{Selections: pricing.Selections{}, Quantity: 1}
	if product.HasVariantChoice() {
		return s
	}
	s.VariantChosen = true
	s.Position = 1
	return s
}

func relevantSteps(product catalog.Product, s State) []catalog.OrderStep {
	return product.RelevantSteps(s.ComboType)
}

func firstPosition(product catalog.Product) int {
	if product.HasVariantChoice() {
		return 0
	}
	return 1
}

func summaryPosition(product catalog.Product, s State) int {
	return len(relevantSteps(product, s)) + 1
}

// PhaseOf derives the phase of s.
func PhaseOf(product catalog.Product, s State) Phase {
	switch {
	case s.Committed:
		return PhaseCommitted
	case s.Position == 0 && product.HasVariantChoice():
		return PhaseVariant
	case s.Position >= summaryPosition(product, s):
		return PhaseSummary
	default:
		return PhaseStep
	}
}

// CurrentStep returns the step at the state's position, if any.
func CurrentStep(product catalog.Product, s State) (catalog.OrderStep, bool) {
	steps := relevantSteps(product, s)
	if s.Position < 1 || s.Position > len(steps) {
		return catalog.OrderStep{}, false
	}
	return steps[s.Position-1], true
}

func findStep(product catalog.Product, s State, stepID string) (catalog.OrderStep, bool) {
	for _, step := range relevantSteps(product, s) {
		if step.ID == stepID {
			return step, true
		}
	}
	return catalog.OrderStep{}, false
}

// settle fast-forwards to the summary whenever the position points past the
// relevant steps, which happens when a variant change shrinks the step list.
func settle(product catalog.Product, s State) State {
	if summary := summaryPosition(product, s); s.Position > summary {
		s.Position = summary
	}
	return s
}

func errCommitted() error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "product already added to cart")
}

// ChooseVariant records the simple or combo choice at position 0 and drops
// selections for steps that are no longer relevant.
func ChooseVariant(product catalog.Product, s State, comboType enums.ComboType) (State, error) {
	if s.Committed {
		return s, errCommitted()
	}
	if !product.HasVariantChoice() {
		return s, pkgerrors.New(pkgerrors.CodeStateConflict, "product has no variant choice")
	}
	if s.Position != 0 {
		return s, pkgerrors.New(pkgerrors.CodeStateConflict, "variant can only be chosen on the variant screen")
	}
	if !comboType.IsValid() {
		return s, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid variant %q", comboType)
	}

	s.ComboType = comboType
	s.VariantChosen = true
	keep := make([]string, 0, len(product.Steps))
	for _, step := range relevantSteps(product, s) {
		keep = append(keep, step.ID)
	}
	s.Selections = s.Selections.Prune(keep)
	return settle(product, s), nil
}

// CanAdvance reports whether Advance would succeed.
func CanAdvance(product catalog.Product, s State) bool {
	return advanceBlocker(product, s) == nil
}

func advanceBlocker(product catalog.Product, s State) error {
	if s.Committed {
		return errCommitted()
	}
	switch PhaseOf(product, s) {
	case PhaseVariant:
		if !s.VariantChosen {
			return pkgerrors.New(pkgerrors.CodeValidation, "choose simple or combo first")
		}
	case PhaseStep:
		step, _ := CurrentStep(product, s)
		if got := s.Selections.Count(step.ID); got < step.MinSelections {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "select at least %d item(s) for %s", step.MinSelections, step.Name).
				WithDetails(map[string]any{"step_id": step.ID, "min_selections": step.MinSelections, "selected": got})
		}
	}
	return nil
}

// Advance moves forward one position. At the summary it commits the state;
// use LineItem to obtain the finalized cart entry.
func Advance(product catalog.Product, s State) (State, error) {
	if err := advanceBlocker(product, s); err != nil {
		return s, err
	}
	if PhaseOf(product, s) == PhaseSummary {
		s.Committed = true
		return s, nil
	}
	s.Position++
	return settle(product, s), nil
}

// Retreat moves back one position. From the summary it lands on the last step,
// or on the variant screen when no steps apply.
func Retreat(product catalog.Product, s State) (State, error) {
	if s.Committed {
		return s, errCommitted()
	}
	if s.Position <= firstPosition(product) {
		return s, pkgerrors.New(pkgerrors.CodeStateConflict, "already at the first step")
	}
	s.Position--
	return settle(product, s), nil
}

// JumpTo lets the summary screen return to an earlier position for editing.
func JumpTo(product catalog.Product, s State, position int) (State, error) {
	if s.Committed {
		return s, errCommitted()
	}
	if PhaseOf(product, s) != PhaseSummary {
		return s, pkgerrors.New(pkgerrors.CodeStateConflict, "jumping is only available from the summary")
	}
	summary := summaryPosition(product, s)
	if position < firstPosition(product) || position >= summary {
		return s, pkgerrors.Newf(pkgerrors.CodeValidation, "position %d out of range", position)
	}
	s.Position = position
	return s, nil
}

// Toggle applies the selection rule for productID on stepID. It reports false
// when the toggle was a no-op because the step is at capacity.
func Toggle(product catalog.Product, s State, stepID, productID string) (State, bool, error) {
	if s.Committed {
		return s, false, errCommitted()
	}
	step, ok := findStep(product, s, stepID)
	if !ok {
		return s, false, pkgerrors.Newf(pkgerrors.CodeValidation, "step %q is not available", stepID)
	}
	if _, ok := step.Item(productID); !ok {
		return s, false, pkgerrors.Newf(pkgerrors.CodeValidation, "item %q is not offered on step %q", productID, stepID)
	}

	switch {
	case s.Selections.Contains(stepID, productID):
		s.Selections = s.Selections.Without(stepID, productID)
	case step.MaxSelections == 1:
		s.Selections = s.Selections.Replace(stepID, productID)
	case step.Unbounded() || s.Selections.Count(stepID) < step.MaxSelections:
		s.Selections = s.Selections.With(stepID, productID)
	default:
		return s, false, nil
	}
	return s, true, nil
}

// Increment adds one to the quantity.
func Increment(s State) (State, error) {
	if s.Committed {
		return s, errCommitted()
	}
	s.Quantity++
	return s, nil
}

// Decrement subtracts one from the quantity, never going below 1.
func Decrement(s State) (State, error) {
	if s.Committed {
		return s, errCommitted()
	}
	if s.Quantity > 1 {
		s.Quantity--
	}
	return s, nil
}

// SetObservation stores the normalized note; blank text clears it.
func SetObservation(s State, text string) (State, error) {
	if s.Committed {
		return s, errCommitted()
	}
	s.Observation = cart.NormalizeObservation(text)
	return s, nil
}

// UnitPrice prices the state with the given rules.
func UnitPrice(rules pricing.Rules, product catalog.Product, s State) pricing.Price {
	steps := relevantSteps(product, s)
	unit := rules.UnitPrice(product, s.ComboType, steps, s.Selections)
	return pricing.Price{Unit: unit, Line: pricing.LineTotal(unit, s.Quantity)}
}

// LineItem freezes the configured product into a cart entry.
func LineItem(rules pricing.Rules, product catalog.Product, s State) cart.LineItem {
	steps := relevantSteps(product, s)
	keep := make([]string, 0, len(steps))
	for _, step := range steps {
		keep = append(keep, step.ID)
	}
	price := UnitPrice(rules, product, s)
	return cart.LineItem{
		Product:        product,
		Quantity:       s.Quantity,
		ComboType:      s.ComboType,
		Selections:     s.Selections.Prune(keep),
		FinalUnitPrice: decimal.NewNullDecimal(price.Unit),
		Observation:    s.Observation,
	}
}
