package enums

import "fmt"

// ProgressStage is a customer-facing order progress stage, independent of backend vocabulary.
type ProgressStage string

const (
	ProgressStageSent            ProgressStage = "sent"
	ProgressStageAccepted        ProgressStage = "accepted"
	ProgressStageInProduction    ProgressStage = "in_production"
	ProgressStageReadyForPickup  ProgressStage = "ready_for_pickup"
	ProgressStagePickedUp        ProgressStage = "picked_up"
	ProgressStageAwaitingCourier ProgressStage = "awaiting_courier"
	ProgressStageWithCourier     ProgressStage = "with_courier"
	ProgressStageEnRoute         ProgressStage = "en_route"
	ProgressStageDelivered       ProgressStage = "delivered"
)

var validProgressStages = []ProgressStage{
	ProgressStageSent,
	ProgressStageAccepted,
	ProgressStageInProduction,
	ProgressStageReadyForPickup,
	ProgressStagePickedUp,
	ProgressStageAwaitingCourier,
	ProgressStageWithCourier,
	ProgressStageEnRoute,
	ProgressStageDelivered,
}

// String implements fmt.Stringer.
func (v ProgressStage) String() string {
	return string(v)
}

// IsValid reports whether the value is a known ProgressStage.
func (v ProgressStage) IsValid() bool {
	for _, candidate := range validProgressStages {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseProgressStage converts raw input into a ProgressStage.
func ParseProgressStage(value string) (ProgressStage, error) {
	for _, candidate := range validProgressStages {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid progress stage %q", value)
}
