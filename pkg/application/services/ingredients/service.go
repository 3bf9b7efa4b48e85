// Package ingredients computes the daily production sheet: the terminal
// ingredients a day's plan consumes, expanded through sub-recipes with
// the coefficient method.
package ingredients

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/craftsman/pkg/application/dto"
	"github.com/vsinha/craftsman/pkg/application/services/shared"
	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/domain/errs"
	"github.com/vsinha/craftsman/pkg/domain/repositories"
	"github.com/vsinha/craftsman/pkg/infrastructure/logging"
)

// Service aggregates ingredient totals for planned dates
type Service struct {
	store    repositories.Transactor
	settings shared.Settings
	logger   *zap.Logger
}

// NewService creates an ingredient service
func NewService(store repositories.Transactor, settings shared.Settings, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		settings: settings,
		logger:   logging.OrNop(logger).Named("ingredients"),
	}
}

// DailyIngredients returns the ingredients needed for every plan item on
// date with a positive quantity. A date without a plan yields an empty sheet.
func (s *Service) DailyIngredients(ctx context.Context, date time.Time) (*dto.DailyIngredients, error) {
	result := &dto.DailyIngredients{Date: entities.DateOnly(date)}

	err := s.store.View(ctx, func(tx repositories.Tx) error {
		plan, err := tx.Plans().GetPlanByDate(date)
		if err != nil {
			if errs.CodeOf(err) == errs.PlanNotFound {
				return nil
			}
			return err
		}

		categories, err := tx.Recipes().GetCategories()
		if err != nil {
			return fmt.Errorf("failed to load categories: %w", err)
		}

		visitor := NewIngredientVisitor(categories)
		traverser := NewRecipeTraverser(tx.Recipes(), s.settings.MaxBOMDepth, s.logger)

		for _, item := range plan.SchedulableItems() {
			recipe, err := tx.Recipes().GetRecipe(item.RecipeCode)
			if err != nil {
				s.logger.Warn("skipping plan item without recipe",
					zap.String("recipe", item.RecipeCode),
					zap.Error(err),
				)
				continue
			}
			if err := traverser.TraverseRecipe(ctx, recipe, recipe.Coefficient(item.Quantity), visitor); err != nil {
				return fmt.Errorf("failed to expand recipe %s: %w", recipe.Code, err)
			}
		}

		result.Categories = groupByCategory(visitor.Totals(), categories)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("daily ingredients calculated",
		zap.Time("date", result.Date),
		zap.Int("categories", len(result.Categories)),
	)
	return result, nil
}

// RecipeRequirements expands a single recipe for a planned quantity
func (s *Service) RecipeRequirements(ctx context.Context, recipeCode string, planned decimal.Decimal) ([]dto.IngredientTotal, error) {
	var totals []dto.IngredientTotal
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		recipe, err := tx.Recipes().GetRecipe(recipeCode)
		if err != nil {
			return err
		}
		categories, err := tx.Recipes().GetCategories()
		if err != nil {
			return fmt.Errorf("failed to load categories: %w", err)
		}

		visitor := NewIngredientVisitor(categories)
		traverser := NewRecipeTraverser(tx.Recipes(), s.settings.MaxBOMDepth, s.logger)
		if err := traverser.TraverseRecipe(ctx, recipe, recipe.Coefficient(planned), visitor); err != nil {
			return err
		}
		totals = visitor.Totals()
		return nil
	})
	return totals, err
}

// groupByCategory orders known categories by sort order, then appends
// unknown ones in first-seen order
func groupByCategory(totals []dto.IngredientTotal, categories []entities.IngredientCategory) []dto.CategoryIngredients {
	byName := make(map[string][]dto.IngredientTotal)
	var seen []string
	for _, t := range totals {
		if _, ok := byName[t.Category]; !ok {
			seen = append(seen, t.Category)
		}
		byName[t.Category] = append(byName[t.Category], t)
	}

	var out []dto.CategoryIngredients
	placed := make(map[string]bool, len(byName))
	for _, c := range categories {
		if items, ok := byName[c.Name]; ok && !placed[c.Name] {
			out = append(out, dto.CategoryIngredients{Category: c.Name, Ingredients: items})
			placed[c.Name] = true
		}
	}
	for _, name := range seen {
		if !placed[name] {
			out = append(out, dto.CategoryIngredients{Category: name, Ingredients: byName[name]})
			placed[name] = true
		}
	}
	return out
}
