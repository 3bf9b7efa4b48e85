// Package scheduling turns approved daily plans into work orders,
// optionally holding every material the day needs first.
package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vsinha/craftsman/pkg/application/dto"
	"github.com/vsinha/craftsman/pkg/application/services/shared"
	"github.com/vsinha/craftsman/pkg/domain/backends"
	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/domain/errs"
	"github.com/vsinha/craftsman/pkg/domain/repositories"
	"github.com/vsinha/craftsman/pkg/domain/services"
	"github.com/vsinha/craftsman/pkg/infrastructure/logging"
)

// SchedulerActor is recorded as creator when no user schedules a plan
const SchedulerActor = "system:scheduler"

// ScheduleOptions tunes a scheduling pass
type ScheduleOptions struct {
	// StartTime sets the clock time orders start on the plan date. Without
	// it each order starts at the default hour, lead time days earlier.
	StartTime *time.Time
	// Location overrides the recipe work center
	Location string
	Actor    string
	// SkipReservation disables holds even when configured on
	SkipReservation bool
	// ReserveInputs overrides the configured default when set
	ReserveInputs *bool
}

// Service drives the plan lifecycle from approval to completion
type Service struct {
	store    repositories.Transactor
	stock    backends.StockBackend
	codes    *services.CodeGenerator
	settings shared.Settings
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates a scheduling service. now defaults to time.Now.
func NewService(
	store repositories.Transactor,
	stock backends.StockBackend,
	codes *services.CodeGenerator,
	settings shared.Settings,
	now func() time.Time,
	logger *zap.Logger,
) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    store,
		stock:    stock,
		codes:    codes,
		settings: settings,
		now:      now,
		logger:   logging.OrNop(logger).Named("scheduling"),
	}
}

// Approve moves the draft plan of date to approved
func (s *Service) Approve(ctx context.Context, date time.Time) (*entities.Plan, error) {
	var plan *entities.Plan
	err := s.store.RunInTransaction(ctx, func(tx repositories.Tx) error {
		var err error
		plan, err = tx.Plans().GetPlanByDate(date)
		if err != nil {
			return err
		}
		if err := plan.Approve(s.now()); err != nil {
			return err
		}
		return tx.Plans().SavePlan(plan)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("plan approved", zap.String("plan", plan.Label()), zap.Int("items", plan.TotalItems()))
	return plan, nil
}

// Complete moves the scheduled plan of date to completed. Open work
// orders do not block completion; their count is logged.
func (s *Service) Complete(ctx context.Context, date time.Time) (*entities.Plan, error) {
	var plan *entities.Plan
	var open int
	err := s.store.RunInTransaction(ctx, func(tx repositories.Tx) error {
		var err error
		plan, err = tx.Plans().GetPlanByDate(date)
		if err != nil {
			return err
		}
		if err := plan.Complete(s.now()); err != nil {
			return err
		}

		orders, err := tx.WorkOrders().ListWorkOrders(repositories.WorkOrderFilter{
			PlanDateFrom: plan.Date,
			PlanDateTo:   plan.Date.AddDate(0, 0, 1),
			Statuses: []entities.WorkOrderStatus{
				entities.WorkOrderPending,
				entities.WorkOrderInProgress,
				entities.WorkOrderPaused,
			},
		})
		if err != nil {
			return err
		}
		open = len(orders)
		return tx.Plans().SavePlan(plan)
	})
	if err != nil {
		return nil, err
	}

	if open > 0 {
		s.logger.Warn("plan completed with open work orders", zap.String("plan", plan.Label()), zap.Int("open", open))
	} else {
		s.logger.Info("plan completed", zap.String("plan", plan.Label()))
	}
	return plan, nil
}

// Schedule creates one work order per plan item with a positive quantity
// and moves the plan to scheduled. The pass is all-or-nothing: any failure
// leaves the plan approved and no work order stored. With reservation on,
// a shortage against the day's consolidated needs is reported in the
// result without changing anything.
func (s *Service) Schedule(ctx context.Context, date time.Time, opts ScheduleOptions) (*dto.ScheduleResult, error) {
	reserve := s.reserveInputs(opts)
	if reserve && s.stock == nil {
		return nil, fmt.Errorf("material reservation requested but no stock backend is configured")
	}

	var result *dto.ScheduleResult
	var reserved []uuid.UUID

	err := s.store.RunInTransaction(ctx, func(tx repositories.Tx) error {
		reserved = nil

		plan, err := tx.Plans().GetPlanByDate(date)
		if err != nil && errs.CodeOf(err) != errs.PlanNotFound {
			return err
		}
		if plan == nil || plan.Status != entities.PlanApproved {
			return errs.New(errs.PlanNotFoundOrNotApproved, "date", entities.DateOnly(date).Format("2006-01-02"))
		}

		items := plan.SchedulableItems()
		recipes := make(map[string]*entities.Recipe, len(items))
		for _, item := range items {
			recipe, err := tx.Recipes().GetRecipe(item.RecipeCode)
			if err != nil {
				return err
			}
			recipes[item.RecipeCode] = recipe
		}

		if reserve {
			shortages, err := s.checkAvailability(ctx, items, recipes)
			if err != nil {
				return err
			}
			if len(shortages) > 0 {
				s.logger.Warn("schedule failed: insufficient materials",
					zap.String("plan", plan.Label()),
					zap.Any("shortages", shortages),
				)
				result = &dto.ScheduleResult{
					Success:   false,
					Plan:      plan,
					Shortages: shortages,
					Message:   "insufficient stock for some materials",
				}
				return nil
			}
		}

		now := s.now()
		orders := make([]*entities.WorkOrder, 0, len(items))
		for _, item := range items {
			recipe := recipes[item.RecipeCode]

			wo, err := s.newWorkOrder(ctx, plan, item, recipe, opts, now)
			if err != nil {
				return fmt.Errorf("failed to create work order for %s: %w", item.RecipeCode, err)
			}

			if reserve {
				// a failed call may still leave partial holds behind
				reserved = append(reserved, wo.ID)
				if err := s.reserve(ctx, wo, recipe, plan); err != nil {
					return err
				}
			} else {
				wo.ReservationMode = entities.ReservationDisabled
			}

			if err := tx.WorkOrders().SaveWorkOrder(wo); err != nil {
				return fmt.Errorf("failed to save work order %s: %w", wo.Code, err)
			}
			orders = append(orders, wo)
		}

		if err := plan.MarkScheduled(now); err != nil {
			return err
		}
		if err := tx.Plans().SavePlan(plan); err != nil {
			return err
		}

		result = &dto.ScheduleResult{
			Success:    true,
			Plan:       plan,
			WorkOrders: orders,
			Reserved:   reserve,
		}
		return nil
	})
	if err != nil {
		s.releaseAll(ctx, reserved)
		s.logger.Error("schedule aborted", zap.Time("date", date), zap.Error(err))
		return nil, err
	}

	if result.Success {
		s.logger.Info("plan scheduled",
			zap.String("plan", result.Plan.Label()),
			zap.Int("work_orders", len(result.WorkOrders)),
			zap.Bool("reserved", result.Reserved),
		)
	}
	return result, nil
}

func (s *Service) reserveInputs(opts ScheduleOptions) bool {
	if opts.SkipReservation {
		return false
	}
	if opts.ReserveInputs != nil {
		return *opts.ReserveInputs
	}
	return s.settings.ReserveInputs
}

// checkAvailability asks the stock backend once for the sum of every
// item's needs
func (s *Service) checkAvailability(ctx context.Context, items []*entities.PlanItem, recipes map[string]*entities.Recipe) ([]dto.InputShortage, error) {
	var needs []backends.MaterialNeed
	for _, item := range items {
		needs = append(needs, backends.NeedsFor(recipes[item.RecipeCode].Requirements(item.Quantity))...)
	}

	availability, err := s.stock.Available(ctx, backends.Consolidate(needs))
	if err != nil {
		return nil, errs.Wrap(errs.ReservationFailed, err).WithMessage("availability check failed")
	}
	if availability.AllAvailable {
		return nil, nil
	}

	var shortages []dto.InputShortage
	for _, m := range availability.Shortages() {
		shortages = append(shortages, dto.InputShortage{
			SKU:       m.SKU,
			Required:  m.Needed,
			Available: m.Available,
			Shortage:  m.Shortage(),
		})
	}
	return shortages, nil
}

func (s *Service) newWorkOrder(
	ctx context.Context,
	plan *entities.Plan,
	item *entities.PlanItem,
	recipe *entities.Recipe,
	opts ScheduleOptions,
	now time.Time,
) (*entities.WorkOrder, error) {
	wo, err := entities.NewWorkOrder(recipe, item.Quantity, now)
	if err != nil {
		return nil, err
	}

	code, err := s.codes.Next(ctx)
	if err != nil {
		return nil, err
	}
	wo.Code = code
	wo.PlanItemID = item.ID
	wo.PlanDate = plan.Date
	wo.Destination = item.Destination
	if opts.Location != "" {
		wo.Location = opts.Location
	}

	start := s.startFor(plan.Date, recipe, opts)
	wo.ScheduledStart = &start
	if recipe.DurationMinutes > 0 {
		end := start.Add(time.Duration(recipe.DurationMinutes) * time.Minute)
		wo.ScheduledEnd = &end
	}

	wo.CreatedBy = SchedulerActor
	if opts.Actor != "" {
		wo.CreatedBy = "user:" + opts.Actor
		wo.ScheduledBy = opts.Actor
	}
	return wo, nil
}

func (s *Service) startFor(planDate time.Time, recipe *entities.Recipe, opts ScheduleOptions) time.Time {
	if opts.StartTime != nil {
		t := opts.StartTime.In(s.location())
		y, m, d := planDate.Date()
		return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, s.location())
	}
	return s.settings.StartOf(planDate.AddDate(0, 0, -recipe.LeadTimeDays))
}

func (s *Service) location() *time.Location {
	if s.settings.Location == nil {
		return time.UTC
	}
	return s.settings.Location
}

// reserve holds the order's own materials and records the holds on it
func (s *Service) reserve(ctx context.Context, wo *entities.WorkOrder, recipe *entities.Recipe, plan *entities.Plan) error {
	needs := backends.NeedsFor(wo.Requirements(recipe))
	res, err := s.stock.Reserve(ctx, needs, wo.ID, map[string]string{
		"plan_date":  plan.Date.Format("2006-01-02"),
		"work_order": wo.Code,
	})
	if err != nil {
		s.logger.Error("failed to reserve materials", zap.String("work_order", wo.Code), zap.Error(err))
		return errs.Wrap(errs.ReservationFailed, err, "work_order", wo.Code)
	}
	if !res.Success {
		s.logger.Error("failed to reserve materials", zap.String("work_order", wo.Code), zap.String("message", res.Message))
		return errs.New(errs.ReservationFailed, "work_order", wo.Code, "message", res.Message)
	}

	wo.ReservationMode = entities.ReservationEnabled
	for _, h := range res.Holds {
		wo.Holds = append(wo.Holds, entities.Hold{SKU: h.SKU, Quantity: h.Quantity, HoldID: h.HoldID})
	}
	return nil
}

// releaseAll frees holds created by an aborted pass. Failures are logged.
func (s *Service) releaseAll(ctx context.Context, workOrderIDs []uuid.UUID) {
	for _, id := range workOrderIDs {
		res, err := s.stock.Release(ctx, id, "schedule aborted")
		if err != nil {
			s.logger.Error("compensating release failed", zap.Stringer("work_order_id", id), zap.Error(err))
			continue
		}
		if !res.Success {
			s.logger.Error("compensating release failed", zap.Stringer("work_order_id", id), zap.String("message", res.Message))
		}
	}
}
