package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-engine/api/responses"
	"github.com/angelmondragon/storefront-engine/api/validators"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
	"github.com/angelmondragon/storefront-engine/pkg/storefrontapi"
)

// IdentityService identifies the customer checkout is placed for.
type IdentityService interface {
	CheckIdentifier(ctx context.Context, identifier string) (storefrontapi.IdentifierResult, error)
	ClientLogin(ctx context.Context, clientID, password string) (storefrontapi.LoginResult, error)
	RegisterClient(ctx context.Context, name, phone string) (storefrontapi.Customer, error)
}

type identifierRequest struct {
	Identifier string `json:"identifier" validate:"required,max=120"`
}

type clientLoginRequest struct {
	ClientID string `json:"client_id" validate:"required"`
	Password string `json:"password"`
}

type registerClientRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=120"`
	Phone string `json:"phone" validate:"required,min=8,max=20"`
}

type identityResponse struct {
	ClientID string                  `json:"client_id"`
	Client   *storefrontapi.Customer `json:"client,omitempty"`
}

// IdentityCheck reports whether a phone or email belongs to a known customer.
func IdentityCheck(svc IdentityService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity service unavailable"))
			return
		}
		var payload identifierRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.CheckIdentifier(r.Context(), validators.SanitizeString(payload.Identifier, 120))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// IdentityLogin authenticates a known client and binds it to the session.
func IdentityLogin(svc IdentityService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r, logg)
		if !ok {
			return
		}
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity service unavailable"))
			return
		}
		var payload clientLoginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ClientLogin(r.Context(), payload.ClientID, payload.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !result.Success {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid credentials"))
			return
		}
		clientID := result.Client.ID
		if clientID == "" {
			clientID = payload.ClientID
		}
		s.SetClientID(clientID)
		responses.WriteSuccess(w, identityResponse{ClientID: clientID, Client: &result.Client})
	}
}

// IdentityRegister creates a client and binds it to the session.
func IdentityRegister(svc IdentityService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r, logg)
		if !ok {
			return
		}
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity service unavailable"))
			return
		}
		var payload registerClientRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.RegisterClient(r.Context(), payload.Name, payload.Phone)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if customer.ID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "client registration returned no id"))
			return
		}
		s.SetClientID(customer.ID)
		responses.WriteSuccessStatus(w, http.StatusCreated, identityResponse{ClientID: customer.ID, Client: &customer})
	}
}

func IdentityCurrent(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, identityResponse{ClientID: s.ClientID()})
	}
}

// IdentityForget unbinds the client; the cart is kept.
func IdentityForget(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r, logg)
		if !ok {
			return
		}
		s.SetClientID("")
		w.WriteHeader(http.StatusNoContent)
	}
}
