// Package execution records production on work orders: direct creation,
// steps, completion and the pause, resume and cancel transitions.
// Operations on one work order are serialised.
package execution

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/craftsman/pkg/application/services/shared"
	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/domain/errs"
	"github.com/vsinha/craftsman/pkg/domain/repositories"
	"github.com/vsinha/craftsman/pkg/domain/services"
	"github.com/vsinha/craftsman/pkg/infrastructure/events"
	"github.com/vsinha/craftsman/pkg/infrastructure/logging"
)

// CreateRequest is a direct production request outside any plan
type CreateRequest struct {
	RecipeCode     string
	Quantity       decimal.Decimal
	Destination    string
	ScheduledStart *time.Time
	Location       string
	AssignedTo     string
	Source         string
	// Code is generated when empty
	Code  string
	Notes string
	Actor string
}

// BatchItem is one line of a production batch
type BatchItem struct {
	RecipeCode  string
	Quantity    decimal.Decimal
	Destination string
	Location    string
	AssignedTo  string
}

// BatchRequest creates back-to-back work orders for one day
type BatchRequest struct {
	Date time.Time
	// StartTime is the clock time of the first order, the default hour when nil
	StartTime  *time.Time
	Location   string
	AssignedTo string
	Items      []BatchItem
}

// Service executes work orders
type Service struct {
	store     repositories.Transactor
	publisher events.Publisher
	codes     *services.CodeGenerator
	settings  shared.Settings
	now       func() time.Time
	logger    *zap.Logger
	locks     *keyedMutex
}

// NewService creates an execution service. A nil publisher drops events.
func NewService(
	store repositories.Transactor,
	publisher events.Publisher,
	codes *services.CodeGenerator,
	settings shared.Settings,
	now func() time.Time,
	logger *zap.Logger,
) *Service {
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = events.NewBus()
	}
	return &Service{
		store:     store,
		publisher: publisher,
		codes:     codes,
		settings:  settings,
		now:       now,
		logger:    logging.OrNop(logger).Named("execution"),
		locks:     newKeyedMutex(),
	}
}

// Create stores a pending work order for a recipe
func (s *Service) Create(ctx context.Context, req CreateRequest) (*entities.WorkOrder, error) {
	if !req.Quantity.IsPositive() {
		return nil, errs.New(errs.InvalidQuantity, "quantity", req.Quantity.String())
	}

	var wo *entities.WorkOrder
	err := s.store.RunInTransaction(ctx, func(tx repositories.Tx) error {
		var err error
		wo, err = s.create(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("work order created",
		zap.String("work_order", wo.Code),
		zap.String("recipe", wo.RecipeCode),
		zap.Stringer("quantity", wo.PlannedQuantity),
	)
	return wo, nil
}

// CreateBatch creates one order per item, each starting when the previous
// recipe's duration has elapsed. Either every order is stored or none.
func (s *Service) CreateBatch(ctx context.Context, req BatchRequest) ([]*entities.WorkOrder, error) {
	start := s.settings.StartOf(req.Date)
	if req.StartTime != nil {
		y, m, d := req.Date.Date()
		start = time.Date(y, m, d, req.StartTime.Hour(), req.StartTime.Minute(), 0, 0, start.Location())
	}

	var orders []*entities.WorkOrder
	err := s.store.RunInTransaction(ctx, func(tx repositories.Tx) error {
		orders = nil
		for _, item := range req.Items {
			if !item.Quantity.IsPositive() {
				return errs.New(errs.InvalidQuantity, "quantity", item.Quantity.String(), "recipe", item.RecipeCode)
			}

			location := item.Location
			if location == "" {
				location = req.Location
			}
			assigned := item.AssignedTo
			if assigned == "" {
				assigned = req.AssignedTo
			}

			itemStart := start
			wo, err := s.create(ctx, tx, CreateRequest{
				RecipeCode:     item.RecipeCode,
				Quantity:       item.Quantity,
				Destination:    item.Destination,
				ScheduledStart: &itemStart,
				Location:       location,
				AssignedTo:     assigned,
			})
			if err != nil {
				return err
			}
			orders = append(orders, wo)

			if wo.ScheduledEnd != nil {
				start = *wo.ScheduledEnd
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("work order batch created", zap.Time("date", req.Date), zap.Int("work_orders", len(orders)))
	return orders, nil
}

func (s *Service) create(ctx context.Context, tx repositories.Tx, req CreateRequest) (*entities.WorkOrder, error) {
	recipe, err := tx.Recipes().GetRecipe(req.RecipeCode)
	if err != nil {
		return nil, err
	}

	wo, err := entities.NewWorkOrder(recipe, req.Quantity, s.now())
	if err != nil {
		return nil, err
	}

	wo.Code = req.Code
	if wo.Code == "" {
		if wo.Code, err = s.codes.Next(ctx); err != nil {
			return nil, err
		}
	}
	wo.Destination = req.Destination
	if req.Location != "" {
		wo.Location = req.Location
	}
	wo.AssignedTo = req.AssignedTo
	wo.Source = req.Source
	wo.Notes = req.Notes
	if req.Actor != "" {
		wo.CreatedBy = "user:" + req.Actor
	}
	if req.ScheduledStart != nil {
		start := *req.ScheduledStart
		wo.ScheduledStart = &start
		if recipe.DurationMinutes > 0 {
			end := start.Add(time.Duration(recipe.DurationMinutes) * time.Minute)
			wo.ScheduledEnd = &end
		}
	}

	if err := tx.WorkOrders().SaveWorkOrder(wo); err != nil {
		return nil, fmt.Errorf("failed to save work order %s: %w", wo.Code, err)
	}
	return wo, nil
}

// mutate runs fn on a fresh copy of the work order under its lock and
// stores the result. fn gets a context carrying the open transaction, so
// listeners it notifies can read the store through it. Events returned
// by fn are published after commit.
func (s *Service) mutate(
	ctx context.Context,
	id uuid.UUID,
	fn func(ctx context.Context, wo *entities.WorkOrder, recipe *entities.Recipe) ([]events.Event, error),
) (*entities.WorkOrder, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var wo *entities.WorkOrder
	var after []events.Event
	err := s.store.RunInTransaction(ctx, func(tx repositories.Tx) error {
		var err error
		wo, err = tx.WorkOrders().GetWorkOrder(id)
		if err != nil {
			return err
		}
		recipe, err := tx.Recipes().GetRecipe(wo.RecipeCode)
		if err != nil {
			return err
		}

		after, err = fn(repositories.WithTx(ctx, tx), wo, recipe)
		if err != nil {
			return err
		}
		return tx.WorkOrders().SaveWorkOrder(wo)
	})
	if err != nil {
		return nil, err
	}

	for _, event := range after {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("event listener failed",
				zap.String("event", event.Type()),
				zap.String("work_order", wo.Code),
				zap.Error(err),
			)
		}
	}
	return wo, nil
}

// publishMaterialsNeeded notifies listeners inside the transaction so a
// refusal from the stock side undoes the start
func (s *Service) publishMaterialsNeeded(ctx context.Context, wo *entities.WorkOrder, recipe *entities.Recipe) error {
	requirements := wo.Requirements(recipe)
	if len(requirements) == 0 {
		return nil
	}
	if err := s.publisher.Publish(ctx, events.NewMaterialsNeeded(wo.Clone(), requirements)); err != nil {
		return fmt.Errorf("work order %s cannot start: %w", wo.Code, err)
	}
	s.logger.Info("materials needed published", zap.String("work_order", wo.Code), zap.Int("requirements", len(requirements)))
	return nil
}

// Start moves a pending order to in progress without recording a step
func (s *Service) Start(ctx context.Context, id uuid.UUID, actor string) (*entities.WorkOrder, error) {
	return s.mutate(ctx, id, func(ctx context.Context, wo *entities.WorkOrder, recipe *entities.Recipe) ([]events.Event, error) {
		if err := wo.Start(s.now()); err != nil {
			return nil, err
		}
		if err := s.publishMaterialsNeeded(ctx, wo, recipe); err != nil {
			return nil, err
		}
		s.logger.Info("work order started", zap.String("work_order", wo.Code), zap.String("actor", actor))
		return nil, nil
	})
}

// Step records a production step. The first step starts the order and
// the recipe's last step completes it.
func (s *Service) Step(ctx context.Context, id uuid.UUID, step string, quantity decimal.Decimal, actor string) (*entities.WorkOrder, error) {
	return s.mutate(ctx, id, func(ctx context.Context, wo *entities.WorkOrder, recipe *entities.Recipe) ([]events.Event, error) {
		outcome, err := wo.RecordStep(recipe, step, quantity, actor, s.now())
		if err != nil {
			return nil, err
		}

		if outcome.UnknownStep {
			s.logger.Warn("step not declared by recipe",
				zap.String("work_order", wo.Code),
				zap.String("step", step),
				zap.Strings("recipe_steps", recipe.Steps),
			)
		}
		s.logger.Info("step recorded",
			zap.String("work_order", wo.Code),
			zap.String("step", step),
			zap.Stringer("quantity", quantity),
			zap.String("actor", actor),
		)

		if outcome.Started {
			if err := s.publishMaterialsNeeded(ctx, wo, recipe); err != nil {
				return nil, err
			}
		}
		if outcome.Completed {
			s.logger.Info("last step recorded, work order auto-completed",
				zap.String("work_order", wo.Code),
				zap.Stringer("actual_quantity", wo.ActualQuantity.Decimal),
			)
			return []events.Event{events.NewProductionCompleted(wo.Clone(), recipe.Output, actor)}, nil
		}
		return nil, nil
	})
}

// Complete finalises production. Without actual, the last step quantity
// or else the planned quantity is used. Completing twice is a no-op.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, actual decimal.NullDecimal, actor string) (*entities.WorkOrder, error) {
	if actual.Valid && actual.Decimal.IsNegative() {
		return nil, errs.New(errs.InvalidQuantity, "quantity", actual.Decimal.String())
	}
	return s.mutate(ctx, id, func(ctx context.Context, wo *entities.WorkOrder, recipe *entities.Recipe) ([]events.Event, error) {
		completed, err := wo.Complete(actual, actor, s.now())
		if err != nil {
			return nil, err
		}
		if !completed {
			s.logger.Warn("work order already completed", zap.String("work_order", wo.Code))
			return nil, nil
		}
		s.logger.Info("work order completed",
			zap.String("work_order", wo.Code),
			zap.Stringer("actual_quantity", wo.ActualQuantity.Decimal),
		)
		return []events.Event{events.NewProductionCompleted(wo.Clone(), recipe.Output, actor)}, nil
	})
}

// Pause suspends an in-progress order
func (s *Service) Pause(ctx context.Context, id uuid.UUID, reason string) (*entities.WorkOrder, error) {
	return s.mutate(ctx, id, func(ctx context.Context, wo *entities.WorkOrder, _ *entities.Recipe) ([]events.Event, error) {
		if err := wo.Pause(reason, s.now()); err != nil {
			return nil, err
		}
		s.logger.Info("work order paused", zap.String("work_order", wo.Code), zap.String("reason", reason))
		return nil, nil
	})
}

// Resume continues a paused order
func (s *Service) Resume(ctx context.Context, id uuid.UUID) (*entities.WorkOrder, error) {
	return s.mutate(ctx, id, func(ctx context.Context, wo *entities.WorkOrder, _ *entities.Recipe) ([]events.Event, error) {
		if err := wo.Resume(s.now()); err != nil {
			return nil, err
		}
		s.logger.Info("work order resumed", zap.String("work_order", wo.Code))
		return nil, nil
	})
}

// Cancel terminates an order. Releasing its materials happens in the
// listeners after the cancellation is stored and cannot undo it.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*entities.WorkOrder, error) {
	return s.mutate(ctx, id, func(ctx context.Context, wo *entities.WorkOrder, _ *entities.Recipe) ([]events.Event, error) {
		if err := wo.Cancel(reason, s.now()); err != nil {
			return nil, err
		}
		s.logger.Info("work order cancelled", zap.String("work_order", wo.Code), zap.String("reason", reason))
		return []events.Event{events.NewOrderCancelled(wo.Clone(), reason)}, nil
	})
}

// Get returns a work order by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entities.WorkOrder, error) {
	var wo *entities.WorkOrder
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		var err error
		wo, err = tx.WorkOrders().GetWorkOrder(id)
		return err
	})
	return wo, err
}

// GetByCode returns a work order by its code
func (s *Service) GetByCode(ctx context.Context, code string) (*entities.WorkOrder, error) {
	var wo *entities.WorkOrder
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		var err error
		wo, err = tx.WorkOrders().GetWorkOrderByCode(code)
		return err
	})
	return wo, err
}

// Pending lists pending orders produced on date (by plan date or
// scheduled start), optionally at one location, by scheduled start
func (s *Service) Pending(ctx context.Context, date time.Time, location string) ([]*entities.WorkOrder, error) {
	orders, err := s.list(ctx, repositories.WorkOrderFilter{
		Statuses: []entities.WorkOrderStatus{entities.WorkOrderPending},
		Location: location,
	})
	if err != nil {
		return nil, err
	}

	var out []*entities.WorkOrder
	target := entities.DateOnly(date)
	for _, wo := range orders {
		if date.IsZero() || wo.PlanDate.Equal(target) ||
			(wo.ScheduledStart != nil && entities.DateOnly(*wo.ScheduledStart).Equal(target)) {
			out = append(out, wo)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ScheduledStart, out[j].ScheduledStart
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Before(*b)
	})
	return out, nil
}

// InProgress lists running orders, optionally at one location, by start time
func (s *Service) InProgress(ctx context.Context, location string) ([]*entities.WorkOrder, error) {
	orders, err := s.list(ctx, repositories.WorkOrderFilter{
		Statuses: []entities.WorkOrderStatus{entities.WorkOrderInProgress},
		Location: location,
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].StartedAt != nil && orders[j].StartedAt != nil && orders[i].StartedAt.Before(*orders[j].StartedAt)
	})
	return orders, nil
}

// ForPlanItem lists every order created for a plan item
func (s *Service) ForPlanItem(ctx context.Context, planItemID uuid.UUID) ([]*entities.WorkOrder, error) {
	return s.list(ctx, repositories.WorkOrderFilter{PlanItemID: planItemID})
}

func (s *Service) list(ctx context.Context, filter repositories.WorkOrderFilter) ([]*entities.WorkOrder, error) {
	var orders []*entities.WorkOrder
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		var err error
		orders, err = tx.WorkOrders().ListWorkOrders(filter)
		return err
	})
	return orders, err
}
