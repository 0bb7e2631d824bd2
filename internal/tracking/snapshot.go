package tracking

import (
	"strings"
	"time"

	"github.com/angelmondragon/storefront-engine/internal/orders"
	"github.com/angelmondragon/storefront-engine/pkg/enums"
)

// StageStatus is how a stage renders relative to the current one.
type StageStatus string

const (
	StageCompleted StageStatus = "completed"
	StageCurrent   StageStatus = "current"
	StagePending   StageStatus = "pending"
)

type StageView struct {
	Stage  enums.ProgressStage `json:"stage"`
	Status StageStatus         `json:"status"`
}

// Snapshot is the normalized progress published on every successful poll.
type Snapshot struct {
	OrderID            string              `json:"order_id"`
	Code               string              `json:"code"`
	DeliveryMode       enums.DeliveryMode  `json:"delivery_mode"`
	RawStatus          string              `json:"raw_status"`
	Stage              enums.ProgressStage `json:"stage"`
	Index              int                 `json:"index"`
	Stages             []StageView         `json:"stages"`
	PickupAddress      string              `json:"pickup_address,omitempty"`
	CourierName        string              `json:"courier_name,omitempty"`
	TrackingURL        string              `json:"tracking_url,omitempty"`
	Cancelled          bool                `json:"cancelled"`
	CancellationReason string              `json:"cancellation_reason,omitempty"`
	Order              orders.Order        `json:"order"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// Completed returns the stages before the current one.
func (s Snapshot) Completed() []enums.ProgressStage {
	out := make([]enums.ProgressStage, 0, s.Index)
	for _, v := range s.Stages {
		if v.Status == StageCompleted {
			out = append(out, v.Stage)
		}
	}
	return out
}

// ModeFor picks the sequence an order is tracked on. Orders without a known
// mode are tracked as delivery when they carry an address.
func ModeFor(order orders.Order) enums.DeliveryMode {
	if order.DeliveryMode.IsValid() {
		return order.DeliveryMode
	}
	if order.Address != nil {
		return enums.DeliveryModeDelivery
	}
	return enums.DeliveryModePickup
}

// BuildSnapshot derives the progress view of order on the mode's sequence.
func BuildSnapshot(order orders.Order, mode enums.DeliveryMode, pickupAddress string, now time.Time) Snapshot {
	stage := MapStatus(mode, order.Status)
	index := StageIndex(mode, stage)
	seq := Sequence(mode)

	views := make([]StageView, len(seq))
	for i, s := range seq {
		status := StagePending
		switch {
		case i < index:
			status = StageCompleted
		case i == index:
			status = StageCurrent
		}
		views[i] = StageView{Stage: s, Status: status}
	}

	snap := Snapshot{
		OrderID:            order.TrackingID(),
		Code:               order.Code,
		DeliveryMode:       mode,
		RawStatus:          order.Status,
		Stage:              stage,
		Index:              index,
		Stages:             views,
		Cancelled:          order.IsCancelled(),
		CancellationReason: strings.TrimSpace(order.CancellationReason),
		Order:              order,
		UpdatedAt:          now,
	}
	switch stage {
	case enums.ProgressStageReadyForPickup:
		snap.PickupAddress = strings.TrimSpace(pickupAddress)
	case enums.ProgressStageEnRoute:
		snap.CourierName = strings.TrimSpace(order.CourierName)
		snap.TrackingURL = strings.TrimSpace(order.TrackingURL)
	}
	return snap
}
