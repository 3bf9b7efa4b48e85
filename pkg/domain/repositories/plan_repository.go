package repositories

import (
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/craftsman/pkg/domain/entities"
)

// PlanRepository provides access to daily plans and their items
type PlanRepository interface {
	GetPlanByDate(date time.Time) (*entities.Plan, error)
	GetPlanItem(id uuid.UUID) (*entities.PlanItem, error)
	SavePlan(plan *entities.Plan) error
	ListPlans() ([]*entities.Plan, error)
}
