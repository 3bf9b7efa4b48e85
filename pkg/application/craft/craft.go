// Package craft is the entry point of the production engine. It composes
// planning, scheduling, execution, forecasting and ingredient reporting
// over one store and one set of backends.
package craft

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/craftsman/pkg/application/dto"
	"github.com/vsinha/craftsman/pkg/application/services/execution"
	"github.com/vsinha/craftsman/pkg/application/services/forecast"
	"github.com/vsinha/craftsman/pkg/application/services/handlers"
	"github.com/vsinha/craftsman/pkg/application/services/ingredients"
	"github.com/vsinha/craftsman/pkg/application/services/scheduling"
	"github.com/vsinha/craftsman/pkg/application/services/shared"
	"github.com/vsinha/craftsman/pkg/domain/backends"
	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/domain/errs"
	"github.com/vsinha/craftsman/pkg/domain/repositories"
	"github.com/vsinha/craftsman/pkg/domain/services"
	"github.com/vsinha/craftsman/pkg/infrastructure/backends/noop"
	"github.com/vsinha/craftsman/pkg/infrastructure/events"
	"github.com/vsinha/craftsman/pkg/infrastructure/logging"
	"github.com/vsinha/craftsman/pkg/infrastructure/repositories/memory"
)

var (
	defaultDemandMu sync.Mutex
	defaultDemand   backends.DemandBackend
)

// DefaultDemandBackend returns the process wide demand backend used when
// Options.Demand is nil, building a no-op one on first use
func DefaultDemandBackend() backends.DemandBackend {
	defaultDemandMu.Lock()
	defer defaultDemandMu.Unlock()
	if defaultDemand == nil {
		defaultDemand = noop.DemandBackend{}
	}
	return defaultDemand
}

// SetDefaultDemandBackend replaces the process wide demand backend
func SetDefaultDemandBackend(d backends.DemandBackend) {
	defaultDemandMu.Lock()
	defer defaultDemandMu.Unlock()
	defaultDemand = d
}

// ResetDefaultDemandBackend drops the process wide demand backend so the
// next call builds it again
func ResetDefaultDemandBackend() {
	SetDefaultDemandBackend(nil)
}

// Options wires a Craft. Zero values select in-process defaults.
type Options struct {
	Store     repositories.Transactor
	Stock     backends.StockBackend
	Demand    backends.DemandBackend
	Sequences repositories.SequenceRepository
	Settings  *shared.Settings
	// Listeners receive every event after the stock handlers
	Listeners []events.Listener
	Now       func() time.Time
	Logger    *zap.Logger
}

// Craft is the production facade
type Craft struct {
	store      repositories.Transactor
	bus        *events.Bus
	settings   shared.Settings
	now        func() time.Time
	logger     *zap.Logger
	scheduling *scheduling.Service
	execution  *execution.Service
	forecast   *forecast.Service
	ingredient *ingredients.Service
}

// New builds a Craft from opts
func New(opts Options) *Craft {
	logger := logging.OrNop(opts.Logger)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	settings := shared.DefaultSettings()
	if opts.Settings != nil {
		settings = *opts.Settings
	}
	store := opts.Store
	if store == nil {
		store = memory.NewStore()
	}
	stock := opts.Stock
	if stock == nil {
		stock = noop.StockBackend{}
	}
	demand := opts.Demand
	if demand == nil {
		demand = DefaultDemandBackend()
	}
	sequences := opts.Sequences
	if sequences == nil {
		sequences = memory.NewSequenceRepository()
	}

	bus := events.NewBus()
	handlers.NewStockHandlers(stock, store, now, logger).Register(bus)
	for _, l := range opts.Listeners {
		bus.SubscribeAll(l)
	}

	codes := services.NewCodeGenerator(sequences, settings.CodePrefix, now)
	return &Craft{
		store:      store,
		bus:        bus,
		settings:   settings,
		now:        now,
		logger:     logger.Named("craft"),
		scheduling: scheduling.NewService(store, stock, codes, settings, now, logger),
		execution:  execution.NewService(store, bus, codes, settings, now, logger),
		forecast:   forecast.NewService(store, demand, settings, logger),
		ingredient: ingredients.NewService(store, settings, logger),
	}
}

// Bus exposes the event bus for additional subscriptions. Materials
// needed listeners run inside the step's transaction: calls back into
// Craft must pass the ctx the listener received, and must not change the
// order being started.
func (c *Craft) Bus() *events.Bus {
	return c.bus
}

// Plan adds or updates the line producing product on date. The plan of
// the day is created as a draft when missing. A line that already has a
// work order keeps its quantity.
func (c *Craft) Plan(ctx context.Context, quantity decimal.Decimal, product entities.ItemRef, date time.Time, destination string, priority int) (*entities.PlanItem, error) {
	if !quantity.IsPositive() {
		return nil, errs.New(errs.InvalidQuantity, "quantity", quantity.String())
	}

	var item *entities.PlanItem
	err := c.store.RunInTransaction(ctx, func(tx repositories.Tx) error {
		recipe, err := tx.Recipes().FindRecipeForOutput(product)
		if err != nil {
			return err
		}
		if recipe == nil {
			return errs.New(errs.RecipeNotFound, "product", product.String())
		}

		plan, err := tx.Plans().GetPlanByDate(date)
		if errs.CodeOf(err) == errs.PlanNotFound {
			plan, err = entities.NewPlan(date, c.now()), nil
		}
		if err != nil {
			return err
		}

		item = plan.ItemFor(recipe.Code)
		if item == nil {
			if item, err = entities.NewPlanItem(recipe.Code, quantity, destination, priority, c.now()); err != nil {
				return err
			}
			if err := plan.AddItem(item); err != nil {
				return err
			}
		} else {
			orders, err := tx.WorkOrders().ListWorkOrders(repositories.WorkOrderFilter{PlanItemID: item.ID})
			if err != nil {
				return err
			}
			if len(orders) > 0 {
				return errs.New(errs.InvalidStatus, "plan_item", item.ID.String(), "work_orders", len(orders)).
					WithMessage("plan item already has work orders")
			}
			item.Quantity = quantity
			if destination != "" {
				item.Destination = destination
			}
			if priority != entities.DefaultPriority {
				item.Priority = priority
			}
			item.UpdatedAt = c.now()
		}
		return tx.Plans().SavePlan(plan)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("planned",
		zap.String("product", product.String()),
		zap.String("recipe", item.RecipeCode),
		zap.Stringer("quantity", quantity),
		zap.Time("date", entities.DateOnly(date)),
	)
	return item, nil
}

// Approve approves the plan of date
func (c *Craft) Approve(ctx context.Context, date time.Time) (*entities.Plan, error) {
	return c.scheduling.Approve(ctx, date)
}

// Schedule creates the work orders of an approved plan
func (c *Craft) Schedule(ctx context.Context, date time.Time, opts scheduling.ScheduleOptions) (*dto.ScheduleResult, error) {
	return c.scheduling.Schedule(ctx, date, opts)
}

// CompletePlan closes a scheduled plan
func (c *Craft) CompletePlan(ctx context.Context, date time.Time) (*entities.Plan, error) {
	return c.scheduling.Complete(ctx, date)
}

// Create stores a work order outside any plan
func (c *Craft) Create(ctx context.Context, req execution.CreateRequest) (*entities.WorkOrder, error) {
	return c.execution.Create(ctx, req)
}

// CreateBatch stores back-to-back work orders for one day
func (c *Craft) CreateBatch(ctx context.Context, req execution.BatchRequest) ([]*entities.WorkOrder, error) {
	return c.execution.CreateBatch(ctx, req)
}

func (c *Craft) Start(ctx context.Context, id uuid.UUID, actor string) (*entities.WorkOrder, error) {
	return c.execution.Start(ctx, id, actor)
}

func (c *Craft) Step(ctx context.Context, id uuid.UUID, step string, quantity decimal.Decimal, actor string) (*entities.WorkOrder, error) {
	return c.execution.Step(ctx, id, step, quantity, actor)
}

func (c *Craft) Complete(ctx context.Context, id uuid.UUID, actual decimal.NullDecimal, actor string) (*entities.WorkOrder, error) {
	return c.execution.Complete(ctx, id, actual, actor)
}

func (c *Craft) Pause(ctx context.Context, id uuid.UUID, reason string) (*entities.WorkOrder, error) {
	return c.execution.Pause(ctx, id, reason)
}

func (c *Craft) Resume(ctx context.Context, id uuid.UUID) (*entities.WorkOrder, error) {
	return c.execution.Resume(ctx, id)
}

func (c *Craft) Cancel(ctx context.Context, id uuid.UUID, reason string) (*entities.WorkOrder, error) {
	return c.execution.Cancel(ctx, id, reason)
}

// FindRecipe returns the active recipe producing product, or nil
func (c *Craft) FindRecipe(ctx context.Context, product entities.ItemRef) (*entities.Recipe, error) {
	var recipe *entities.Recipe
	err := c.store.View(ctx, func(tx repositories.Tx) error {
		var err error
		recipe, err = tx.Recipes().FindRecipeForOutput(product)
		return err
	})
	return recipe, err
}

// GetPlan returns the plan of date
func (c *Craft) GetPlan(ctx context.Context, date time.Time) (*entities.Plan, error) {
	var plan *entities.Plan
	err := c.store.View(ctx, func(tx repositories.Tx) error {
		var err error
		plan, err = tx.Plans().GetPlanByDate(date)
		return err
	})
	return plan, err
}

// GetPlanItem returns the line producing product on date, or nil when the
// plan has none
func (c *Craft) GetPlanItem(ctx context.Context, product entities.ItemRef, date time.Time) (*entities.PlanItem, error) {
	var item *entities.PlanItem
	err := c.store.View(ctx, func(tx repositories.Tx) error {
		recipe, err := tx.Recipes().FindRecipeForOutput(product)
		if err != nil || recipe == nil {
			return err
		}
		plan, err := tx.Plans().GetPlanByDate(date)
		if err != nil {
			return err
		}
		item = plan.ItemFor(recipe.Code)
		return nil
	})
	return item, err
}

// GetWorkOrder returns the active work order of a plan item, or nil
func (c *Craft) GetWorkOrder(ctx context.Context, planItemID uuid.UUID) (*entities.WorkOrder, error) {
	orders, err := c.execution.ForPlanItem(ctx, planItemID)
	if err != nil {
		return nil, err
	}
	return entities.ActiveWorkOrder(orders), nil
}

// GetPending lists pending orders for date, optionally at one location
func (c *Craft) GetPending(ctx context.Context, date time.Time, location string) ([]*entities.WorkOrder, error) {
	return c.execution.Pending(ctx, date, location)
}

// GetInProgress lists running orders, optionally at one location
func (c *Craft) GetInProgress(ctx context.Context, location string) ([]*entities.WorkOrder, error) {
	return c.execution.InProgress(ctx, location)
}

// DailyIngredients aggregates the terminal ingredients of the plan of date
func (c *Craft) DailyIngredients(ctx context.Context, date time.Time) (*dto.DailyIngredients, error) {
	return c.ingredient.DailyIngredients(ctx, date)
}

// SuggestPlan forecasts every sellable recipe for date. Recipes consumed
// by another recipe are skipped. Forecasts run concurrently.
func (c *Craft) SuggestPlan(ctx context.Context, date time.Time) ([]dto.Suggestion, error) {
	var codes []string
	err := c.store.View(ctx, func(tx repositories.Tx) error {
		recipes, err := tx.Recipes().GetAllRecipes()
		if err != nil {
			return err
		}
		consumed := make(map[entities.SKU]bool)
		for _, r := range recipes {
			for _, line := range r.ActiveItems() {
				consumed[line.Item.SKU] = true
			}
		}
		for _, r := range recipes {
			if r.IsActive && !consumed[r.Output.SKU] {
				codes = append(codes, r.Code)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	sort.Strings(codes)

	suggestions := make([]dto.Suggestion, len(codes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, code := range codes {
		i, code := i, code
		g.Go(func() error {
			suggestions[i] = c.forecast.Suggest(gctx, code, date)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return suggestions, nil
}

// Suggested returns the forecast quantity for a plan item
func (c *Craft) Suggested(ctx context.Context, item *entities.PlanItem) decimal.Decimal {
	return c.forecast.SuggestedQuantity(ctx, item)
}
