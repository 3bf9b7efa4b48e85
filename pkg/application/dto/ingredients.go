package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/craftsman/pkg/domain/entities"
)

// IngredientTotal is the quantity of one terminal ingredient needed on a date
type IngredientTotal struct {
	ItemName      string
	SKU           entities.SKU
	Category      string
	TotalQuantity decimal.Decimal
	Unit          string
	// Coefficient sums the top level coefficients of the plan items using it
	Coefficient decimal.Decimal
	UsedIn      []string
}

// CategoryIngredients groups ingredient totals under one category
type CategoryIngredients struct {
	Category    string
	Ingredients []IngredientTotal
}

// DailyIngredients is the production sheet for a date, categories in sort order
type DailyIngredients struct {
	Date       time.Time
	Categories []CategoryIngredients
}

// Category returns the ingredients of the named category, or nil
func (d DailyIngredients) Category(name string) []IngredientTotal {
	for _, c := range d.Categories {
		if c.Category == name {
			return c.Ingredients
		}
	}
	return nil
}

// Find returns the total for a SKU across all categories
func (d DailyIngredients) Find(sku entities.SKU) (IngredientTotal, bool) {
	for _, c := range d.Categories {
		for _, i := range c.Ingredients {
			if i.SKU == sku {
				return i, true
			}
		}
	}
	return IngredientTotal{}, false
}
