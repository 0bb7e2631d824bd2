package catalog

import (
	"github.com/angelmondragon/storefront-engine/pkg/db/models"
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// FromModel maps a persisted product onto the domain type.
func FromModel(row models.Product) Product {
	p := Product{
		ID:             row.ID.String(),
		Name:           row.Name,
		Description:    deref(row.Description),
		Category:       deref(row.Category),
		Type:           row.ProductType,
		SalePrice:      row.SalePrice,
		SimplePrice:    row.SimplePrice,
		PhotoURL:       deref(row.PhotoURL),
		SimplePhotoURL: deref(row.SimplePhotoURL),
		ComboPhotoURL:  deref(row.ComboPhotoURL),
		Steps:          make([]OrderStep, 0, len(row.Steps)),
	}
	for _, s := range row.Steps {
		step := OrderStep{
			ID:              s.ID.String(),
			Name:            s.Name,
			ComboOnly:       s.ComboOnly,
			MinSelections:   s.MinSelections,
			MaxSelections:   s.MaxSelections,
			CalculationType: s.CalculationType,
			Items:           make([]StepItem, 0, len(s.Items)),
		}
		for _, item := range s.Items {
			step.Items = append(step.Items, StepItem{
				ProductID:     item.ItemProductID.String(),
				ProductName:   item.ProductName,
				PriceOverride: item.PriceOverride,
			})
		}
		p.Steps = append(p.Steps, step)
	}
	return p
}
