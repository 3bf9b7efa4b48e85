package memory

import (
	"sort"

	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/domain/errs"
	"github.com/vsinha/craftsman/pkg/domain/repositories"
)

type recipeRepository struct {
	tx *transaction
}

var _ repositories.RecipeRepository = (*recipeRepository)(nil)

func (r *recipeRepository) GetRecipe(code string) (*entities.Recipe, error) {
	recipe, ok := r.tx.state.recipes[code]
	if !ok {
		return nil, errs.New(errs.RecipeNotFound, "recipe", code)
	}
	return recipe.Clone(), nil
}

func (r *recipeRepository) FindRecipeForOutput(output entities.ItemRef) (*entities.Recipe, error) {
	for _, recipe := range r.sorted() {
		if recipe.IsActive && recipe.Output.SKU == output.SKU {
			return recipe.Clone(), nil
		}
	}
	return nil, nil
}

func (r *recipeRepository) GetAllRecipes() ([]*entities.Recipe, error) {
	sorted := r.sorted()
	recipes := make([]*entities.Recipe, 0, len(sorted))
	for _, recipe := range sorted {
		recipes = append(recipes, recipe.Clone())
	}
	return recipes, nil
}

func (r *recipeRepository) SaveRecipe(recipe *entities.Recipe) error {
	if err := r.tx.checkWritable(); err != nil {
		return err
	}
	r.tx.state.recipes[recipe.Code] = recipe.Clone()
	return nil
}

func (r *recipeRepository) GetCategories() ([]entities.IngredientCategory, error) {
	categories := make([]entities.IngredientCategory, 0, len(r.tx.state.categories))
	for _, c := range r.tx.state.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].SortOrder != categories[j].SortOrder {
			return categories[i].SortOrder < categories[j].SortOrder
		}
		return categories[i].Code < categories[j].Code
	})
	return categories, nil
}

func (r *recipeRepository) SaveCategory(category entities.IngredientCategory) error {
	if err := r.tx.checkWritable(); err != nil {
		return err
	}
	r.tx.state.categories[category.Code] = category
	return nil
}

func (r *recipeRepository) sorted() []*entities.Recipe {
	recipes := make([]*entities.Recipe, 0, len(r.tx.state.recipes))
	for _, recipe := range r.tx.state.recipes {
		recipes = append(recipes, recipe)
	}
	sort.Slice(recipes, func(i, j int) bool { return recipes[i].Code < recipes[j].Code })
	return recipes
}
