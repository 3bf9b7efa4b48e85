package memory

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/domain/errs"
	"github.com/vsinha/craftsman/pkg/domain/repositories"
)

type planRepository struct {
	tx *transaction
}

var _ repositories.PlanRepository = (*planRepository)(nil)

func (r *planRepository) GetPlanByDate(date time.Time) (*entities.Plan, error) {
	key := entities.DateOnly(date).Format(dateKeyLayout)
	plan, ok := r.tx.state.plans[key]
	if !ok {
		return nil, errs.New(errs.PlanNotFound, "date", key)
	}
	return plan.Clone(), nil
}

func (r *planRepository) GetPlanItem(id uuid.UUID) (*entities.PlanItem, error) {
	for _, plan := range r.tx.state.plans {
		if item := plan.ItemByID(id); item != nil {
			copied := *item
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("plan item not found: %s", id)
}

func (r *planRepository) SavePlan(plan *entities.Plan) error {
	if err := r.tx.checkWritable(); err != nil {
		return err
	}
	key := plan.Date.Format(dateKeyLayout)
	if existing, ok := r.tx.state.plans[key]; ok && existing.ID != plan.ID {
		return fmt.Errorf("a plan already exists for %s", key)
	}
	r.tx.state.plans[key] = plan.Clone()
	return nil
}

func (r *planRepository) ListPlans() ([]*entities.Plan, error) {
	plans := make([]*entities.Plan, 0, len(r.tx.state.plans))
	for _, plan := range r.tx.state.plans {
		plans = append(plans, plan.Clone())
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Date.Before(plans[j].Date) })
	return plans, nil
}
