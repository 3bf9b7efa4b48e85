package repositories

import "github.com/vsinha/craftsman/pkg/domain/entities"

// RecipeRepository provides access to recipe and category master data
type RecipeRepository interface {
	GetRecipe(code string) (*entities.Recipe, error)
	// FindRecipeForOutput returns the active recipe producing output, or nil when the item is terminal
	FindRecipeForOutput(output entities.ItemRef) (*entities.Recipe, error)
	GetAllRecipes() ([]*entities.Recipe, error)
	SaveRecipe(recipe *entities.Recipe) error
	GetCategories() ([]entities.IngredientCategory, error)
	SaveCategory(category entities.IngredientCategory) error
}
