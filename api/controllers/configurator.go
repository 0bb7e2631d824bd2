package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-engine/api/responses"
	"github.com/angelmondragon/storefront-engine/api/validators"
	"github.com/angelmondragon/storefront-engine/internal/cart"
	"github.com/angelmondragon/storefront-engine/internal/configurator"
	"github.com/angelmondragon/storefront-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
)

type startConfiguratorRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

type chooseVariantRequest struct {
	ComboType string `json:"combo_type" validate:"required,oneof=simple combo"`
}

type toggleRequest struct {
	StepID    string `json:"step_id" validate:"required"`
	ProductID string `json:"product_id" validate:"required"`
}

type jumpRequest struct {
	Position int `json:"position" validate:"min=0"`
}

type quantityRequest struct {
	Delta int `json:"delta" validate:"required,oneof=-1 1"`
}

type observationRequest struct {
	Observation string `json:"observation"`
}

type toggleResponse struct {
	Changed      bool              `json:"changed"`
	Configurator configurator.View `json:"configurator"`
}

type advanceResponse struct {
	Configurator configurator.View `json:"configurator"`
	Added        *cart.LineItem    `json:"added,omitempty"`
	Cart         *cartResponse     `json:"cart,omitempty"`
}

// ConfiguratorStart opens the configurator for a menu product.
func ConfiguratorStart(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r, logg)
		if !ok {
			return
		}
		var payload startConfiguratorRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := s.StartConfigurator(r.Context(), payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

func ConfiguratorView(logg *logger.Logger) http.HandlerFunc {
	return configure(logg, func(*configurator.Configurator) error { return nil })
}

func ConfiguratorVariant(logg *logger.Logger) http.HandlerFunc {
	return configureWith(logg, func(payload chooseVariantRequest, c *configurator.Configurator) error {
		comboType, err := enums.ParseComboType(payload.ComboType)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid combo type")
		}
		return c.ChooseVariant(comboType)
	})
}

// ConfiguratorToggle flips one option and reports whether the selection changed.
func ConfiguratorToggle(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r, logg)
		if !ok {
			return
		}
		var payload toggleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var changed bool
		view, err := s.Configure(func(c *configurator.Configurator) error {
			var toggleErr error
			changed, toggleErr = c.Toggle(payload.StepID, payload.ProductID)
			return toggleErr
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toggleResponse{Changed: changed, Configurator: view})
	}
}

// ConfiguratorAdvance moves forward; committing from the summary adds the line to the cart.
func ConfiguratorAdvance(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r, logg)
		if !ok {
			return
		}
		view, added, err := s.AdvanceConfigurator(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp := advanceResponse{Configurator: view, Added: added}
		if added != nil {
			c := newCartResponse(s.Cart())
			resp.Cart = &c
		}
		responses.WriteSuccess(w, resp)
	}
}

func ConfiguratorRetreat(logg *logger.Logger) http.HandlerFunc {
	return configure(logg, func(c *configurator.Configurator) error {
		return c.Retreat()
	})
}

func ConfiguratorJump(logg *logger.Logger) http.HandlerFunc {
	return configureWith(logg, func(payload jumpRequest, c *configurator.Configurator) error {
		return c.JumpTo(payload.Position)
	})
}

func ConfiguratorQuantity(logg *logger.Logger) http.HandlerFunc {
	return configureWith(logg, func(payload quantityRequest, c *configurator.Configurator) error {
		if payload.Delta > 0 {
			return c.Increment()
		}
		return c.Decrement()
	})
}

func ConfiguratorObservation(logg *logger.Logger) http.HandlerFunc {
	return configureWith(logg, func(payload observationRequest, c *configurator.Configurator) error {
		return c.SetObservation(payload.Observation)
	})
}

// ConfiguratorClose discards the open configurator.
func ConfiguratorClose(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r, logg)
		if !ok {
			return
		}
		s.CloseConfigurator()
		w.WriteHeader(http.StatusNoContent)
	}
}

// configure runs fn against the open configurator and writes the resulting view.
func configure(logg *logger.Logger, fn func(*configurator.Configurator) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r, logg)
		if !ok {
			return
		}
		view, err := s.Configure(fn)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// configureWith decodes a T body before delegating to configure.
func configureWith[T any](logg *logger.Logger, fn func(T, *configurator.Configurator) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload T
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		configure(logg, func(c *configurator.Configurator) error {
			return fn(payload, c)
		})(w, r)
	}
}
