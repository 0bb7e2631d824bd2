package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-engine/api/responses"
	"github.com/angelmondragon/storefront-engine/api/validators"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
)

type trackOrderRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

// TrackingStart replaces any active tracker with one polling the given order.
func TrackingStart(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r, logg)
		if !ok {
			return
		}
		var payload trackOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tracker, err := s.TrackOrder(r.Context(), payload.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, tracker.Snapshot())
	}
}

// TrackingSnapshot returns the latest known progress of the tracked order.
func TrackingSnapshot(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r, logg)
		if !ok {
			return
		}
		tracker, err := s.Tracker()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tracker.Snapshot())
	}
}

func TrackingStop(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r, logg)
		if !ok {
			return
		}
		s.StopTracking()
		w.WriteHeader(http.StatusNoContent)
	}
}
