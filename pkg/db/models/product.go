package models

import (
	"time"

	"github.com/angelmondragon/storefront-engine/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a menu entry.
type Product struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name           string              `gorm:"column:name;not null"`
	Description    *string             `gorm:"column:description"`
	Category       *string             `gorm:"column:category"`
	ProductType    enums.ProductType   `gorm:"column:product_type;type:text;not null"`
	SalePrice      decimal.Decimal     `gorm:"column:sale_price;type:numeric(10,2);not null"`
	SimplePrice    decimal.NullDecimal `gorm:"column:simple_price;type:numeric(10,2)"`
	PhotoURL       *string             `gorm:"column:photo_url"`
	SimplePhotoURL *string             `gorm:"column:simple_photo_url"`
	ComboPhotoURL  *string             `gorm:"column:combo_photo_url"`
	IsActive       bool                `gorm:"column:is_active;not null;default:true"`
	Position       int                 `gorm:"column:position;not null;default:0"`
	Steps          []OrderStep         `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
