package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-engine/pkg/db"
	"github.com/angelmondragon/storefront-engine/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/google/uuid"
)

type productReader interface {
	ListActiveProducts(ctx context.Context) ([]models.Product, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes the read-only menu.
type Service interface {
	Menu(ctx context.Context) (*Menu, error)
	Product(ctx context.Context, id string) (Product, error)
}

type service struct {
	repo productReader
}

// NewService builds a catalog service backed by the provided repository.
func NewService(repo productReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

// Menu loads the active products and indexes them for step item lookups.
func (s *service) Menu(ctx context.Context) (*Menu, error) {
	rows, err := s.repo.ListActiveProducts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu")
	}
	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, FromModel(row))
	}
	return NewMenu(products), nil
}

func (s *service) Product(ctx context.Context, id string) (Product, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Product{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id")
	}
	row, err := s.repo.FindProduct(ctx, parsed)
	if err != nil {
		if db.IsNotFound(err) {
			return Product{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return Product{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return FromModel(*row), nil
}
