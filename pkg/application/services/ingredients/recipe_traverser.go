package ingredients

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/domain/repositories"
)

// RecipeNodeContext describes one terminal recipe line reached during traversal
type RecipeNodeContext struct {
	Recipe *entities.Recipe
	Line   entities.RecipeItem
	// Quantity is the line quantity scaled by the accumulated coefficient
	Quantity decimal.Decimal
	// RootCoefficient is the coefficient of the plan item the traversal started from
	RootCoefficient decimal.Decimal
	Trail           string
	Level           int
}

// RecipeNodeVisitor receives the terminal lines of a recipe tree
type RecipeNodeVisitor interface {
	VisitLine(ctx context.Context, node RecipeNodeContext) error
}

// RecipeTraverser expands recipes into terminal lines, descending into
// every line whose item is produced by another active recipe
type RecipeTraverser struct {
	recipeRepo repositories.RecipeRepository
	maxDepth   int
	logger     *zap.Logger
}

// NewRecipeTraverser creates a traverser that stops descending at maxDepth
func NewRecipeTraverser(recipeRepo repositories.RecipeRepository, maxDepth int, logger *zap.Logger) *RecipeTraverser {
	return &RecipeTraverser{
		recipeRepo: recipeRepo,
		maxDepth:   maxDepth,
		logger:     logger,
	}
}

// TraverseRecipe visits the terminal lines of recipe scaled by coefficient
func (rt *RecipeTraverser) TraverseRecipe(
	ctx context.Context,
	recipe *entities.Recipe,
	coefficient decimal.Decimal,
	visitor RecipeNodeVisitor,
) error {
	return rt.traverse(ctx, recipe, coefficient, coefficient, recipe.Name, 0, visitor)
}

func (rt *RecipeTraverser) traverse(
	ctx context.Context,
	recipe *entities.Recipe,
	coefficient decimal.Decimal,
	rootCoefficient decimal.Decimal,
	trail string,
	level int,
	visitor RecipeNodeVisitor,
) error {
	if level >= rt.maxDepth {
		rt.logger.Warn("BOM depth limit reached, possible recipe cycle",
			zap.Int("max_depth", rt.maxDepth),
			zap.String("recipe", recipe.Code),
			zap.String("trail", trail),
		)
		return nil
	}

	for _, line := range recipe.ActiveItems() {
		if err := ctx.Err(); err != nil {
			return err
		}

		sub, err := rt.recipeRepo.FindRecipeForOutput(line.Item)
		if err != nil {
			return fmt.Errorf("failed to resolve sub-recipe for %s: %w", line.Item, err)
		}

		if sub == nil {
			node := RecipeNodeContext{
				Recipe:          recipe,
				Line:            line,
				Quantity:        line.Quantity.Mul(coefficient),
				RootCoefficient: rootCoefficient,
				Trail:           trail,
				Level:           level,
			}
			if err := visitor.VisitLine(ctx, node); err != nil {
				return fmt.Errorf("failed to visit line %s of %s: %w", line.Item, recipe.Code, err)
			}
			continue
		}

		subCoefficient := coefficient
		if sub.OutputQuantity.IsPositive() {
			subCoefficient = line.Quantity.Mul(coefficient).Div(sub.OutputQuantity)
		}
		if err := rt.traverse(ctx, sub, subCoefficient, rootCoefficient, trail+" > "+sub.Name, level+1, visitor); err != nil {
			return err
		}
	}
	return nil
}
