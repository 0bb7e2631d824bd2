package address

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
	"github.com/angelmondragon/storefront-engine/pkg/types"
	"github.com/go-playground/validator/v10"
)

// MinStreetSearchLength is the shortest term forwarded to the street search.
const MinStreetSearchLength = 3

// Backend is the address book and district catalog held by the ordering backend.
type Backend interface {
	ListAddresses(ctx context.Context, clientID string) ([]types.Address, error)
	CreateAddress(ctx context.Context, clientID string, input types.AddressInput, isDefault bool) (types.Address, error)
	UpdateAddress(ctx context.Context, addressID string, patch types.AddressPatch) (types.Address, error)
	DeleteAddress(ctx context.Context, addressID string) error
	ListDistricts(ctx context.Context) ([]types.District, error)
	SearchStreets(ctx context.Context, term string) ([]types.Street, error)
}

// Service manages a client's saved addresses. Reads fail silently to empty
// results; writes surface dependency errors.
type Service interface {
	List(ctx context.Context, clientID string) []types.Address
	Create(ctx context.Context, clientID string, input types.AddressInput) (types.Address, error)
	Update(ctx context.Context, clientID, addressID string, patch types.AddressPatch) (types.Address, error)
	Delete(ctx context.Context, clientID, addressID string) error
	SetDefault(ctx context.Context, clientID, addressID string) ([]types.Address, error)
	Districts(ctx context.Context) []types.District
	SearchStreets(ctx context.Context, term string) []types.Street
}

type service struct {
	backend  Backend
	logg     *logger.Logger
	validate *validator.Validate
}

// NewService builds an address service over the backend.
func NewService(backend Backend, logg *logger.Logger) (Service, error) {
	if backend == nil {
		return nil, fmt.Errorf("address backend required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		backend:  backend,
		logg:     logg,
		validate: newValidator(),
	}, nil
}

func (s *service) List(ctx context.Context, clientID string) []types.Address {
	if strings.TrimSpace(clientID) == "" {
		return []types.Address{}
	}
	addrs, err := s.backend.ListAddresses(ctx, clientID)
	if err != nil {
		s.logg.WarnErr(s.logg.WithClientID(ctx, clientID), "list addresses failed", err)
		return []types.Address{}
	}
	return addrs
}

// Create validates and stores a new address. The client's first address is
// stored as default.
func (s *service) Create(ctx context.Context, clientID string, input types.AddressInput) (types.Address, error) {
	if strings.TrimSpace(clientID) == "" {
		return types.Address{}, errors.New(errors.CodeValidation, "client is required")
	}
	input = input.Normalize()
	if err := s.validate.Struct(input); err != nil {
		return types.Address{}, validationError(err)
	}

	existing, err := s.backend.ListAddresses(ctx, clientID)
	if err != nil {
		// an unknown address book never gets a second default
		s.logg.WarnErr(s.logg.WithClientID(ctx, clientID), "list addresses before create failed", err)
	}
	isDefault := err == nil && len(existing) == 0

	created, err := s.backend.CreateAddress(ctx, clientID, input, isDefault)
	if err != nil {
		return types.Address{}, writeError(err, "save address")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, clientID, addressID string, patch types.AddressPatch) (types.Address, error) {
	if strings.TrimSpace(addressID) == "" {
		return types.Address{}, errors.New(errors.CodeValidation, "address id is required")
	}
	if blank(patch.Street) || blank(patch.District) {
		return types.Address{}, errors.New(errors.CodeValidation, "street and district cannot be empty")
	}

	makeDefault := patch.IsDefault != nil && *patch.IsDefault
	if makeDefault {
		patch.IsDefault = nil
	}
	updated, err := s.backend.UpdateAddress(ctx, addressID, patch)
	if err != nil {
		return types.Address{}, writeError(err, "update address")
	}
	if !makeDefault {
		return updated, nil
	}
	addrs, err := s.SetDefault(ctx, clientID, addressID)
	if err != nil {
		return types.Address{}, err
	}
	for _, addr := range addrs {
		if addr.ID == addressID {
			return addr, nil
		}
	}
	updated.IsDefault = true
	return updated, nil
}

// Delete removes the address and promotes another one when the default was removed.
func (s *service) Delete(ctx context.Context, clientID, addressID string) error {
	if strings.TrimSpace(addressID) == "" {
		return errors.New(errors.CodeValidation, "address id is required")
	}
	before := s.List(ctx, clientID)
	if err := s.backend.DeleteAddress(ctx, addressID); err != nil {
		return writeError(err, "delete address")
	}

	wasDefault := false
	var remaining []types.Address
	for _, addr := range before {
		if addr.ID == addressID {
			wasDefault = addr.IsDefault
			continue
		}
		remaining = append(remaining, addr)
	}
	if !wasDefault || len(remaining) == 0 {
		return nil
	}
	_, err := s.SetDefault(ctx, clientID, remaining[0].ID)
	return err
}

// SetDefault flags addressID as default and clears the flag everywhere else.
func (s *service) SetDefault(ctx context.Context, clientID, addressID string) ([]types.Address, error) {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(addressID) == "" {
		return nil, errors.New(errors.CodeValidation, "client and address are required")
	}
	addrs, err := s.backend.ListAddresses(ctx, clientID)
	if err != nil {
		return nil, writeError(err, "load addresses")
	}

	found := false
	for _, addr := range addrs {
		if addr.ID == addressID {
			found = true
		}
	}
	if !found {
		return nil, errors.New(errors.CodeNotFound, "address not found")
	}

	off, on := false, true
	out := make([]types.Address, 0, len(addrs))
	for _, addr := range addrs {
		switch {
		case addr.ID != addressID && addr.IsDefault:
			if _, err := s.backend.UpdateAddress(ctx, addr.ID, types.AddressPatch{IsDefault: &off}); err != nil {
				return nil, writeError(err, "clear default address")
			}
			addr.IsDefault = false
		case addr.ID == addressID && !addr.IsDefault:
			if _, err := s.backend.UpdateAddress(ctx, addr.ID, types.AddressPatch{IsDefault: &on}); err != nil {
				return nil, writeError(err, "set default address")
			}
			addr.IsDefault = true
		}
		out = append(out, addr)
	}
	return out, nil
}

func (s *service) Districts(ctx context.Context) []types.District {
	districts, err := s.backend.ListDistricts(ctx)
	if err != nil {
		s.logg.WarnErr(ctx, "list districts failed", err)
		return []types.District{}
	}
	return districts
}

// SearchStreets returns suggestions for terms of at least MinStreetSearchLength runes.
func (s *service) SearchStreets(ctx context.Context, term string) []types.Street {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < MinStreetSearchLength {
		return []types.Street{}
	}
	streets, err := s.backend.SearchStreets(ctx, term)
	if err != nil {
		s.logg.WarnErr(ctx, "street search failed", err)
		return []types.Street{}
	}
	return streets
}

func blank(v *string) bool {
	return v != nil && strings.TrimSpace(*v) == ""
}

func writeError(err error, action string) error {
	if typed := errors.As(err); typed != nil && typed.Code() == errors.CodeValidation {
		return err
	}
	return errors.Wrap(errors.CodeDependency, err, action)
}
