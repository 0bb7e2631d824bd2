package models

import (
	"github.com/angelmondragon/storefront-engine/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStep is a configuration stage attached to a composite product.
type OrderStep struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	ProductID       uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	Name            string                `gorm:"column:name;not null"`
	ComboOnly       bool                  `gorm:"column:combo_only;not null;default:false"`
	MinSelections   int                   `gorm:"column:min_selections;not null;default:0"`
	MaxSelections   int                   `gorm:"column:max_selections;not null;default:0"`
	CalculationType enums.CalculationType `gorm:"column:calculation_type;type:text;not null;default:'sum'"`
	Position        int                   `gorm:"column:position;not null;default:0"`
	Items           []OrderStepItem       `gorm:"foreignKey:StepID;constraint:OnDelete:CASCADE"`
}

func (OrderStep) TableName() string { return "order_steps" }

// OrderStepItem points at another product offered inside a step.
type OrderStepItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	StepID        uuid.UUID       `gorm:"column:step_id;type:uuid;not null"`
	ItemProductID uuid.UUID       `gorm:"column:item_product_id;type:uuid;not null"`
	ProductName   string          `gorm:"column:product_name;not null"`
	PriceOverride decimal.Decimal `gorm:"column:price_override;type:numeric(10,2);not null;default:0"`
	Position      int             `gorm:"column:position;not null;default:0"`
}

func (OrderStepItem) TableName() string { return "order_step_items" }
