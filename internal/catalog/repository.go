package catalog

import (
	"context"

	"github.com/angelmondragon/storefront-engine/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads the menu tables.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *Repository) withSteps(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Steps", orderByPosition).
		Preload("Steps.Items", orderByPosition)
}

// ListActiveProducts loads every active product with its steps and items in position order.
func (r *Repository) ListActiveProducts(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	if err := r.withSteps(ctx).
		Where("is_active = ?", true).
		Order("position ASC").
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindProduct loads one product, active or not, with its steps.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var row models.Product
	if err := r.withSteps(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
