package repositories

import (
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/craftsman/pkg/domain/entities"
)

// WorkOrderFilter narrows ListWorkOrders. Zero values do not filter.
type WorkOrderFilter struct {
	RecipeCode     string
	Statuses       []entities.WorkOrderStatus
	PlanItemID     uuid.UUID
	PlanDateFrom   time.Time // inclusive
	PlanDateTo     time.Time // exclusive
	ProductionDate time.Time
	Location       string
}

// Matches reports whether wo passes every set criterion
func (f WorkOrderFilter) Matches(wo *entities.WorkOrder) bool {
	if f.RecipeCode != "" && wo.RecipeCode != f.RecipeCode {
		return false
	}
	if f.PlanItemID != uuid.Nil && wo.PlanItemID != f.PlanItemID {
		return false
	}
	if f.Location != "" && wo.Location != f.Location {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if wo.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.PlanDateFrom.IsZero() && (wo.PlanDate.IsZero() || wo.PlanDate.Before(f.PlanDateFrom)) {
		return false
	}
	if !f.PlanDateTo.IsZero() && (wo.PlanDate.IsZero() || !wo.PlanDate.Before(f.PlanDateTo)) {
		return false
	}
	if !f.ProductionDate.IsZero() {
		date, ok := wo.ProductionDate()
		if !ok || !date.Equal(entities.DateOnly(f.ProductionDate)) {
			return false
		}
	}
	return true
}

// WorkOrderRepository provides access to work orders
type WorkOrderRepository interface {
	GetWorkOrder(id uuid.UUID) (*entities.WorkOrder, error)
	GetWorkOrderByCode(code string) (*entities.WorkOrder, error)
	SaveWorkOrder(wo *entities.WorkOrder) error
	ListWorkOrders(filter WorkOrderFilter) ([]*entities.WorkOrder, error)
}
