// Package forecast suggests plan quantities from production history and
// committed customer demand.
package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/craftsman/pkg/application/dto"
	"github.com/vsinha/craftsman/pkg/application/services/shared"
	"github.com/vsinha/craftsman/pkg/domain/backends"
	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/domain/repositories"
	"github.com/vsinha/craftsman/pkg/infrastructure/logging"
)

// Service computes suggested production quantities
type Service struct {
	store    repositories.Transactor
	demand   backends.DemandBackend
	settings shared.Settings
	logger   *zap.Logger
}

// NewService creates a forecast service. A nil demand backend counts no committed demand.
func NewService(store repositories.Transactor, demand backends.DemandBackend, settings shared.Settings, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		demand:   demand,
		settings: settings,
		logger:   logging.OrNop(logger).Named("forecast"),
	}
}

// HistoricalAverage averages the actual quantity of completed orders for a
// recipe whose plan date falls in [date-days, date). With sameWeekday only
// plan dates on the weekday of date count. No history yields zero.
func (s *Service) HistoricalAverage(ctx context.Context, recipeCode string, date time.Time, days int, sameWeekday bool) (decimal.Decimal, int, error) {
	target := entities.DateOnly(date)
	filter := repositories.WorkOrderFilter{
		RecipeCode:   recipeCode,
		Statuses:     []entities.WorkOrderStatus{entities.WorkOrderCompleted},
		PlanDateFrom: target.AddDate(0, 0, -days),
		PlanDateTo:   target,
	}

	var orders []*entities.WorkOrder
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		var err error
		orders, err = tx.WorkOrders().ListWorkOrders(filter)
		return err
	})
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to load history for %s: %w", recipeCode, err)
	}

	sum := decimal.Zero
	count := 0
	for _, wo := range orders {
		if !wo.ActualQuantity.Valid {
			continue
		}
		if sameWeekday && wo.PlanDate.Weekday() != target.Weekday() {
			continue
		}
		sum = sum.Add(wo.ActualQuantity.Decimal)
		count++
	}

	if count == 0 {
		return decimal.Zero, 0, nil
	}
	return sum.Div(decimal.NewFromInt(int64(count))), count, nil
}

// Suggest forecasts a recipe on date as (historical average + committed)
// x (1 + safety stock), rounded to cents. It never fails: any error is
// logged and the suggestion degrades to zero.
func (s *Service) Suggest(ctx context.Context, recipeCode string, date time.Time) dto.Suggestion {
	suggestion := dto.Suggestion{
		RecipeCode:        recipeCode,
		HistoricalAverage: decimal.Zero,
		Committed:         decimal.Zero,
		Suggested:         decimal.Zero,
	}

	result, err := s.suggest(ctx, recipeCode, date)
	if err != nil {
		s.logger.Warn("forecast degraded to zero",
			zap.String("recipe", recipeCode),
			zap.Time("date", date),
			zap.Error(err),
		)
		return suggestion
	}
	return result
}

// SuggestedQuantity forecasts the quantity of a plan item
func (s *Service) SuggestedQuantity(ctx context.Context, item *entities.PlanItem) decimal.Decimal {
	return s.Suggest(ctx, item.RecipeCode, item.PlanDate).Suggested
}

func (s *Service) suggest(ctx context.Context, recipeCode string, date time.Time) (dto.Suggestion, error) {
	var recipe *entities.Recipe
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		var err error
		recipe, err = tx.Recipes().GetRecipe(recipeCode)
		return err
	})
	if err != nil {
		return dto.Suggestion{}, err
	}
	if recipe.Output.SKU == "" {
		return dto.Suggestion{}, fmt.Errorf("recipe %s has no output product", recipeCode)
	}

	average, samples, err := s.HistoricalAverage(ctx, recipeCode, date, s.settings.HistoricalDays, s.settings.SameWeekdayOnly)
	if err != nil {
		return dto.Suggestion{}, err
	}

	committed := decimal.Zero
	if s.demand != nil {
		committed, err = s.demand.Committed(ctx, recipe.Output, entities.DateOnly(date))
		if err != nil {
			return dto.Suggestion{}, fmt.Errorf("failed to get committed demand for %s: %w", recipe.Output, err)
		}
	}

	factor := decimal.NewFromInt(1).Add(s.settings.SafetyStockPercent)
	return dto.Suggestion{
		RecipeCode:        recipeCode,
		HistoricalAverage: average,
		Committed:         committed,
		Suggested:         average.Add(committed).Mul(factor).RoundBank(2),
		SampleSize:        samples,
	}, nil
}
