package events

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/craftsman/pkg/domain/entities"
)

const (
	MaterialsNeededEvent     = "craft.materials_needed"
	ProductionCompletedEvent = "craft.production_completed"
	OrderCancelledEvent      = "craft.order_cancelled"
)

// MaterialsNeeded is published when a work order starts
type MaterialsNeeded struct {
	WorkOrder    *entities.WorkOrder    `json:"work_order"`
	Requirements []entities.Requirement `json:"requirements"`
}

// ProductionCompleted is published once a work order completes
type ProductionCompleted struct {
	WorkOrder      *entities.WorkOrder `json:"work_order"`
	Output         entities.ItemRef    `json:"output"`
	ActualQuantity decimal.Decimal     `json:"actual_quantity"`
	Destination    string              `json:"destination"`
	Actor          string              `json:"actor"`
}

// OrderCancelled is published when a work order is cancelled
type OrderCancelled struct {
	WorkOrder *entities.WorkOrder `json:"work_order"`
	Reason    string              `json:"reason"`
}

func NewMaterialsNeeded(wo *entities.WorkOrder, requirements []entities.Requirement) Event {
	return NewEvent(MaterialsNeededEvent, wo.Code, MaterialsNeeded{WorkOrder: wo, Requirements: requirements})
}

func NewProductionCompleted(wo *entities.WorkOrder, output entities.ItemRef, actor string) Event {
	return NewEvent(ProductionCompletedEvent, wo.Code, ProductionCompleted{
		WorkOrder:      wo,
		Output:         output,
		ActualQuantity: wo.ActualQuantity.Decimal,
		Destination:    wo.Destination,
		Actor:          actor,
	})
}

func NewOrderCancelled(wo *entities.WorkOrder, reason string) Event {
	return NewEvent(OrderCancelledEvent, wo.Code, OrderCancelled{WorkOrder: wo, Reason: reason})
}
