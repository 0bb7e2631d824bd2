package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-engine/api/responses"
	"github.com/angelmondragon/storefront-engine/api/validators"
	"github.com/angelmondragon/storefront-engine/internal/checkout"
	"github.com/angelmondragon/storefront-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
	"github.com/angelmondragon/storefront-engine/pkg/types"
)

const (
	streetSearchMaxLen  = 80
	defaultStreetLimit  = 20
	maxStreetSuggestion = 100
)

type deliveryModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=pickup delivery"`
}

type selectAddressRequest struct {
	AddressID string `json:"address_id" validate:"required"`
}

type paymentRequest struct {
	Method string `json:"method" validate:"required"`
}

type needsChangeRequest struct {
	NeedsChange *bool `json:"needs_change" validate:"required"`
}

type changeAmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type saveAddressResponse struct {
	Address  types.Address `json:"address"`
	Checkout checkout.View `json:"checkout"`
}

type changeResponse struct {
	Quote    checkout.ChangeQuote `json:"quote"`
	Checkout checkout.View        `json:"checkout"`
}

// CheckoutStart opens a fresh checkout over the session's cart.
func CheckoutStart(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r, logg)
		if !ok {
			return
		}
		o, err := s.StartCheckout(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, o.View())
	}
}

func CheckoutView(logg *logger.Logger) http.HandlerFunc {
	return withCheckout(logg, func(w http.ResponseWriter, r *http.Request, o *checkout.Orchestrator) error {
		responses.WriteSuccess(w, o.View())
		return nil
	})
}

func CheckoutDeliveryMode(logg *logger.Logger) http.HandlerFunc {
	return checkoutStep(logg, func(r *http.Request, payload deliveryModeRequest, o *checkout.Orchestrator) error {
		mode, err := enums.ParseDeliveryMode(payload.Mode)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery mode")
		}
		return o.ChooseDeliveryMode(mode)
	})
}

// CheckoutAddresses lists the client's saved addresses.
func CheckoutAddresses(logg *logger.Logger) http.HandlerFunc {
	return withCheckout(logg, func(w http.ResponseWriter, r *http.Request, o *checkout.Orchestrator) error {
		responses.WriteSuccess(w, o.Addresses(r.Context()))
		return nil
	})
}

func CheckoutSelectAddress(logg *logger.Logger) http.HandlerFunc {
	return checkoutStep(logg, func(r *http.Request, payload selectAddressRequest, o *checkout.Orchestrator) error {
		return o.SelectAddress(r.Context(), payload.AddressID)
	})
}

// CheckoutCreateAddress saves a new address and selects it.
func CheckoutCreateAddress(logg *logger.Logger) http.HandlerFunc {
	return withCheckout(logg, func(w http.ResponseWriter, r *http.Request, o *checkout.Orchestrator) error {
		var payload types.AddressInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return err
		}
		created, err := o.SaveAddress(r.Context(), payload.Normalize())
		if err != nil {
			return err
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, saveAddressResponse{Address: created, Checkout: o.View()})
		return nil
	})
}

func CheckoutDistricts(logg *logger.Logger) http.HandlerFunc {
	return withCheckout(logg, func(w http.ResponseWriter, r *http.Request, o *checkout.Orchestrator) error {
		responses.WriteSuccess(w, o.Districts(r.Context()))
		return nil
	})
}

// CheckoutStreets returns street suggestions for ?q=, capped by ?limit=.
func CheckoutStreets(logg *logger.Logger) http.HandlerFunc {
	return withCheckout(logg, func(w http.ResponseWriter, r *http.Request, o *checkout.Orchestrator) error {
		term := validators.SanitizeString(r.URL.Query().Get("q"), streetSearchMaxLen)
		limit, err := validators.ParseQueryInt(r, "limit", defaultStreetLimit, 1, maxStreetSuggestion)
		if err != nil {
			return err
		}
		streets := []types.Street{}
		if term != "" {
			streets = o.SearchStreets(r.Context(), term)
		}
		if len(streets) > limit {
			streets = streets[:limit]
		}
		responses.WriteSuccess(w, streets)
		return nil
	})
}

func CheckoutPayment(logg *logger.Logger) http.HandlerFunc {
	return checkoutStep(logg, func(r *http.Request, payload paymentRequest, o *checkout.Orchestrator) error {
		method, err := enums.ParsePaymentMethod(payload.Method)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
		}
		return o.ChoosePayment(method)
	})
}

func CheckoutNeedsChange(logg *logger.Logger) http.HandlerFunc {
	return checkoutStep(logg, func(r *http.Request, payload needsChangeRequest, o *checkout.Orchestrator) error {
		return o.AnswerNeedsChange(*payload.NeedsChange)
	})
}

// CheckoutEvaluateChange quotes a tendered amount without changing state.
func CheckoutEvaluateChange(logg *logger.Logger) http.HandlerFunc {
	return withCheckout(logg, func(w http.ResponseWriter, r *http.Request, o *checkout.Orchestrator) error {
		var payload changeAmountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return err
		}
		responses.WriteSuccess(w, changeResponse{Quote: o.EvaluateChange(payload.Amount), Checkout: o.View()})
		return nil
	})
}

func CheckoutConfirmChange(logg *logger.Logger) http.HandlerFunc {
	return withCheckout(logg, func(w http.ResponseWriter, r *http.Request, o *checkout.Orchestrator) error {
		var payload changeAmountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return err
		}
		quote, err := o.ConfirmChange(payload.Amount)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, changeResponse{Quote: quote, Checkout: o.View()})
		return nil
	})
}

func CheckoutBack(logg *logger.Logger) http.HandlerFunc {
	return withCheckout(logg, func(w http.ResponseWriter, r *http.Request, o *checkout.Orchestrator) error {
		if err := o.Back(); err != nil {
			return err
		}
		responses.WriteSuccess(w, o.View())
		return nil
	})
}

// CheckoutSubmit places the order; on success the session starts tracking it.
func CheckoutSubmit(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r, logg)
		if !ok {
			return
		}
		order, err := s.SubmitCheckout(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func CheckoutPoints(logg *logger.Logger) http.HandlerFunc {
	return withCheckout(logg, func(w http.ResponseWriter, r *http.Request, o *checkout.Orchestrator) error {
		responses.WriteSuccess(w, o.PointsPreview(r.Context()))
		return nil
	})
}

// withCheckout resolves the open checkout and writes any error fn returns.
func withCheckout(logg *logger.Logger, fn func(http.ResponseWriter, *http.Request, *checkout.Orchestrator) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r, logg)
		if !ok {
			return
		}
		o, err := s.Checkout()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := fn(w, r, o); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
		}
	}
}

// checkoutStep decodes a T body, applies one transition and writes the new view.
func checkoutStep[T any](logg *logger.Logger, fn func(*http.Request, T, *checkout.Orchestrator) error) http.HandlerFunc {
	return withCheckout(logg, func(w http.ResponseWriter, r *http.Request, o *checkout.Orchestrator) error {
		var payload T
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return err
		}
		if err := fn(r, payload, o); err != nil {
			return err
		}
		responses.WriteSuccess(w, o.View())
		return nil
	})
}
