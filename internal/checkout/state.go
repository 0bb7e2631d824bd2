package checkout

import (
	"github.com/angelmondragon/storefront-engine/internal/pricing"
	"github.com/angelmondragon/storefront-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// State is the serializable checkout record. Reducers below return a new
// State and never mutate their input.
type State struct {
	Step           enums.CheckoutStep  `json:"step"`
	DeliveryMode   enums.DeliveryMode  `json:"delivery_mode,omitempty"`
	Address        *types.Address      `json:"address,omitempty"`
	DeliveryFee    decimal.Decimal     `json:"delivery_fee"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method,omitempty"`
	ChangeAnswered bool                `json:"change_answered"`
	NeedsChange    bool                `json:"needs_change"`
	ChangeFor      decimal.NullDecimal `json:"change_for_amount"`
}

// Initial is the state a fresh checkout starts in.
func Initial() State {
	return State{Step: enums.CheckoutStepDeliveryType, DeliveryFee: decimal.Zero}
}

func (s State) clone() State {
	if s.Address != nil {
		addr := *s.Address
		s.Address = &addr
	}
	return s
}

func stepConflict(s State, action string) error {
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot %s during %s", action, s.Step).
		WithDetails(map[string]any{"step": s.Step})
}

func resetPayment(s State) State {
	s.PaymentMethod = ""
	return resetChange(s)
}

func resetChange(s State) State {
	s.ChangeAnswered = false
	s.NeedsChange = false
	s.ChangeFor = decimal.NullDecimal{}
	return s
}

// ChooseDeliveryMode records pickup or delivery. Pickup skips the address step.
func ChooseDeliveryMode(s State, mode enums.DeliveryMode) (State, error) {
	if s.Step != enums.CheckoutStepDeliveryType {
		return s, stepConflict(s, "choose delivery mode")
	}
	if !mode.IsValid() {
		return s, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid delivery mode %q", mode)
	}
	next := resetPayment(s.clone())
	next.DeliveryMode = mode
	switch mode {
	case enums.DeliveryModePickup:
		next.Address = nil
		next.DeliveryFee = decimal.Zero
		next.Step = enums.CheckoutStepPayment
	default:
		next.Step = enums.CheckoutStepAddress
	}
	return next, nil
}

// SelectAddress snapshots the delivery address along with its district fee.
func SelectAddress(s State, addr types.Address, fee decimal.Decimal) (State, error) {
	if s.Step != enums.CheckoutStepAddress {
		return s, stepConflict(s, "select an address")
	}
	if addr.Street == "" || addr.District == "" {
		return s, pkgerrors.New(pkgerrors.CodeValidation, "address must have street and district")
	}
	next := s.clone()
	next.Address = &addr
	if fee.IsNegative() {
		fee = decimal.Zero
	}
	next.DeliveryFee = pricing.Round(fee)
	next.Step = enums.CheckoutStepPayment
	return next, nil
}

// ChoosePayment records the payment method. Cash enters the change sub-flow.
func ChoosePayment(s State, method enums.PaymentMethod) (State, error) {
	if s.Step != enums.CheckoutStepPayment {
		return s, stepConflict(s, "choose payment")
	}
	if !method.IsValid() {
		return s, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment method %q", method)
	}
	next := resetChange(s.clone())
	next.PaymentMethod = method
	if method == enums.PaymentMethodCash {
		next.Step = enums.CheckoutStepChange
	} else {
		next.Step = enums.CheckoutStepReady
	}
	return next, nil
}

// AnswerNeedsChange answers the cash change question. "No" makes the checkout
// ready; "yes" waits for a confirmed amount.
func AnswerNeedsChange(s State, needs bool) (State, error) {
	if s.Step != enums.CheckoutStepChange {
		return s, stepConflict(s, "answer the change question")
	}
	next := resetChange(s.clone())
	next.NeedsChange = needs
	if !needs {
		next.ChangeAnswered = true
		next.Step = enums.CheckoutStepReady
	}
	return next, nil
}

// ChangeQuote is the live evaluation of a cash amount against what is due.
type ChangeQuote struct {
	Amount  decimal.Decimal `json:"amount"`
	Due     decimal.Decimal `json:"due"`
	Valid   bool            `json:"valid"`
	Change  decimal.Decimal `json:"change"`
	Deficit decimal.Decimal `json:"deficit"`
}

// EvaluateChange compares amount with due. The amount is valid only when it
// is strictly greater than due.
func EvaluateChange(amount, due decimal.Decimal) ChangeQuote {
	amount = pricing.Round(amount)
	due = pricing.Round(due)
	quote := ChangeQuote{Amount: amount, Due: due, Change: decimal.Zero, Deficit: decimal.Zero}
	if amount.GreaterThan(due) {
		quote.Valid = true
		quote.Change = amount.Sub(due)
		return quote
	}
	quote.Deficit = due.Sub(amount)
	return quote
}

// ConfirmChange stores the cash amount the customer will pay with.
func ConfirmChange(s State, amount, due decimal.Decimal) (State, ChangeQuote, error) {
	if s.Step != enums.CheckoutStepChange || !s.NeedsChange {
		return s, ChangeQuote{}, stepConflict(s, "confirm change")
	}
	quote := EvaluateChange(amount, due)
	if !quote.Valid {
		return s, quote, pkgerrors.Newf(pkgerrors.CodeValidation, "change amount must be greater than %s", quote.Due.StringFixed(pricing.CurrencyPlaces)).
			WithDetails(map[string]any{"deficit": quote.Deficit.StringFixed(pricing.CurrencyPlaces)})
	}
	next := s.clone()
	next.ChangeFor = decimal.NewNullDecimal(quote.Amount)
	next.ChangeAnswered = true
	next.Step = enums.CheckoutStepReady
	return next, quote, nil
}

// Back moves to the previous step, mirroring the forward skip rules.
func Back(s State) (State, error) {
	next := s.clone()
	switch s.Step {
	case enums.CheckoutStepAddress:
		next.Step = enums.CheckoutStepDeliveryType
	case enums.CheckoutStepPayment:
		if s.DeliveryMode == enums.DeliveryModePickup {
			next.Step = enums.CheckoutStepDeliveryType
		} else {
			next.Step = enums.CheckoutStepAddress
		}
	case enums.CheckoutStepChange:
		next = resetChange(next)
		next.Step = enums.CheckoutStepPayment
	case enums.CheckoutStepReady:
		if s.PaymentMethod == enums.PaymentMethodCash {
			next = resetChange(next)
			next.Step = enums.CheckoutStepChange
		} else {
			next.Step = enums.CheckoutStepPayment
		}
	default:
		return s, stepConflict(s, "go back")
	}
	return next, nil
}

// CanSubmit reports whether s may be submitted against the amount due.
func CanSubmit(s State, due decimal.Decimal) bool {
	if s.Step != enums.CheckoutStepReady || !s.PaymentMethod.IsValid() || !s.DeliveryMode.IsValid() {
		return false
	}
	if s.DeliveryMode == enums.DeliveryModeDelivery && s.Address == nil {
		return false
	}
	if s.PaymentMethod != enums.PaymentMethodCash {
		return true
	}
	if !s.ChangeAnswered {
		return false
	}
	if s.NeedsChange {
		return s.ChangeFor.Valid && s.ChangeFor.Decimal.GreaterThan(pricing.Round(due))
	}
	return true
}
