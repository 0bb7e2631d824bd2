package tracking

import (
	"github.com/angelmondragon/storefront-engine/pkg/enums"
)

var pickupSequence = []enums.ProgressStage{
	enums.ProgressStageSent,
	enums.ProgressStageAccepted,
	enums.ProgressStageInProduction,
	enums.ProgressStageReadyForPickup,
	enums.ProgressStagePickedUp,
}

var deliverySequence = []enums.ProgressStage{
	enums.ProgressStageSent,
	enums.ProgressStageAccepted,
	enums.ProgressStageInProduction,
	enums.ProgressStageAwaitingCourier,
	enums.ProgressStageWithCourier,
	enums.ProgressStageEnRoute,
	enums.ProgressStageDelivered,
}

var pickupStatuses = map[enums.OrderStatus]enums.ProgressStage{
	enums.OrderStatusAwaitingAcceptance: enums.ProgressStageSent,
	enums.OrderStatusAccepted:           enums.ProgressStageAccepted,
	enums.OrderStatusInProduction:       enums.ProgressStageInProduction,
	enums.OrderStatusReady:              enums.ProgressStageReadyForPickup,
	enums.OrderStatusPickedUp:           enums.ProgressStagePickedUp,
	enums.OrderStatusCompleted:          enums.ProgressStagePickedUp,
}

var deliveryStatuses = map[enums.OrderStatus]enums.ProgressStage{
	enums.OrderStatusAwaitingAcceptance: enums.ProgressStageSent,
	enums.OrderStatusAccepted:           enums.ProgressStageAccepted,
	enums.OrderStatusInProduction:       enums.ProgressStageInProduction,
	enums.OrderStatusReady:              enums.ProgressStageAwaitingCourier,
	enums.OrderStatusInBag:              enums.ProgressStageWithCourier,
	enums.OrderStatusEnRoute:            enums.ProgressStageEnRoute,
	enums.OrderStatusCompleted:          enums.ProgressStageDelivered,
	enums.OrderStatusDelivered:          enums.ProgressStageDelivered,
}

// Sequence returns the ordered stages for mode. Anything other than delivery
// uses the pickup sequence.
func Sequence(mode enums.DeliveryMode) []enums.ProgressStage {
	src := pickupSequence
	if mode == enums.DeliveryModeDelivery {
		src = deliverySequence
	}
	out := make([]enums.ProgressStage, len(src))
	copy(out, src)
	return out
}

// MapStatus maps a raw backend status onto a stage of the mode's sequence.
// Unrecognized statuses map to the first stage.
func MapStatus(mode enums.DeliveryMode, status string) enums.ProgressStage {
	table := pickupStatuses
	if mode == enums.DeliveryModeDelivery {
		table = deliveryStatuses
	}
	if stage, ok := table[enums.NormalizeOrderStatus(status)]; ok {
		return stage
	}
	return enums.ProgressStageSent
}

// StageIndex is the position of stage in the mode's sequence, or 0 when the
// stage does not belong to it.
func StageIndex(mode enums.DeliveryMode, stage enums.ProgressStage) int {
	seq := pickupSequence
	if mode == enums.DeliveryModeDelivery {
		seq = deliverySequence
	}
	for i, candidate := range seq {
		if candidate == stage {
			return i
		}
	}
	return 0
}
