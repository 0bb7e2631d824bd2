package checkout

import (
	"context"

	"github.com/angelmondragon/storefront-engine/pkg/storefrontapi"
	"github.com/shopspring/decimal"
)

// ClubReader loads the loyalty program configuration.
type ClubReader interface {
	GetClubConfig(ctx context.Context) (storefrontapi.ClubConfig, error)
}

// PointsPreview is the loyalty points an order would earn.
type PointsPreview struct {
	ClubName string `json:"club_name"`
	Points   int64  `json:"points"`
}

// PointsFor floors total × rate. Non-positive inputs earn nothing.
func PointsFor(total, rate decimal.Decimal) int64 {
	if !total.IsPositive() || !rate.IsPositive() {
		return 0
	}
	return total.Mul(rate).Floor().IntPart()
}
