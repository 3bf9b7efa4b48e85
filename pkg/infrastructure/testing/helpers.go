// Package testing holds bakery fixtures shared by the service tests
package testing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/domain/repositories"
	stockmem "github.com/vsinha/craftsman/pkg/infrastructure/backends/memory"
	"github.com/vsinha/craftsman/pkg/infrastructure/repositories/memory"
)

// Recipe codes of the bakery fixture
const (
	FrenchBread      = "pao-frances"
	FrenchBreadDough = "massa-pao-frances"
	Croissant        = "croissant"
	Brioche          = "brioche"
)

// Ingredient SKUs of the bakery fixture
const (
	Flour  entities.SKU = "FLOUR"
	Water  entities.SKU = "WATER"
	Yeast  entities.SKU = "YEAST"
	Butter entities.SKU = "BUTTER"
	Eggs   entities.SKU = "EGGS"
	Dough  entities.SKU = "DOUGH-FR"
)

// PlanDate is a Friday used as the default planning date
var PlanDate = time.Date(2025, 12, 12, 0, 0, 0, 0, time.UTC)

// Clock returns a fixed clock at t
func Clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// D parses a decimal literal, panicking on bad input
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// mustCreateRecipe is a helper for tests - panics on validation error
func mustCreateRecipe(code, name string, output entities.SKU, outputQty string, steps ...string) *entities.Recipe {
	recipe, err := entities.NewRecipe(code, name, entities.ItemRef{Kind: entities.Product, SKU: output}, D(outputQty), steps)
	if err != nil {
		panic(err)
	}
	return recipe
}

// mustAddLine is a helper for tests - panics on validation error
func mustAddLine(recipe *entities.Recipe, kind entities.ItemKind, sku entities.SKU, name, qty, unit, category string) {
	line, err := entities.NewRecipeItem(entities.ItemRef{Kind: kind, SKU: sku}, D(qty), unit)
	if err != nil {
		panic(err)
	}
	line.Name = name
	line.Category = category
	if err := recipe.AddItem(*line); err != nil {
		panic(err)
	}
}

// BakeryCategories returns the fixture's ingredient categories
func BakeryCategories() []entities.IngredientCategory {
	return []entities.IngredientCategory{
		{Code: "flours", Name: "Flours", SortOrder: 1, IsActive: true},
		{Code: "liquids", Name: "Liquids", SortOrder: 2, IsActive: true},
		{Code: "leavening", Name: "Leavening", SortOrder: 3, IsActive: true},
		{Code: "dairy", Name: "Dairy", SortOrder: 4, IsActive: true},
	}
}

// BakeryRecipes returns a two level French bread tree plus two flat recipes
func BakeryRecipes() []*entities.Recipe {
	dough := mustCreateRecipe(FrenchBreadDough, "French Bread Dough", Dough, "1.96", "Mixing")
	mustAddLine(dough, entities.Material, Flour, "Flour", "1.000", "kg", "flours")
	mustAddLine(dough, entities.Material, Water, "Water", "0.680", "L", "liquids")
	mustAddLine(dough, entities.Material, Yeast, "Yeast", "0.020", "kg", "leavening")

	bread := mustCreateRecipe(FrenchBread, "French Bread", "BREAD-FR", "20", "Mixing", "Shaping", "Baking")
	bread.WorkCenter = "oven-1"
	bread.DurationMinutes = 180
	mustAddLine(bread, entities.Product, Dough, "French Bread Dough", "2.000", "kg", "")

	croissant := mustCreateRecipe(Croissant, "Croissant", "CROISSANT", "10", "Laminating", "Shaping", "Baking")
	croissant.WorkCenter = "oven-2"
	croissant.LeadTimeDays = 1
	croissant.DurationMinutes = 240
	mustAddLine(croissant, entities.Material, Flour, "Flour", "1.000", "kg", "flours")
	mustAddLine(croissant, entities.Material, Butter, "Butter", "0.500", "kg", "dairy")

	brioche := mustCreateRecipe(Brioche, "Brioche", "BRIOCHE", "12", "Mixing", "Baking")
	mustAddLine(brioche, entities.Material, Flour, "Flour", "0.800", "kg", "flours")
	mustAddLine(brioche, entities.Material, Eggs, "Eggs", "6", "un", "")

	return []*entities.Recipe{dough, bread, croissant, brioche}
}

// NewBakeryStore returns a store seeded with the bakery categories and recipes
func NewBakeryStore() *memory.Store {
	store := memory.NewStore()
	err := store.RunInTransaction(context.Background(), func(tx repositories.Tx) error {
		for _, c := range BakeryCategories() {
			if err := tx.Recipes().SaveCategory(c); err != nil {
				return err
			}
		}
		for _, r := range BakeryRecipes() {
			if err := tx.Recipes().SaveRecipe(r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		panic(err)
	}
	return store
}

// PlanLine is a recipe and quantity to seed on a plan
type PlanLine struct {
	RecipeCode string
	Quantity   string
}

// SeedPlan stores a plan for date with the given lines and status
func SeedPlan(store *memory.Store, date time.Time, status entities.PlanStatus, lines ...PlanLine) *entities.Plan {
	now := date.Add(-12 * time.Hour)
	plan := entities.NewPlan(date, now)
	for i, line := range lines {
		item, err := entities.NewPlanItem(line.RecipeCode, D(line.Quantity), "", entities.DefaultPriority, now.Add(time.Duration(i)*time.Second))
		if err != nil {
			panic(err)
		}
		if err := plan.AddItem(item); err != nil {
			panic(err)
		}
	}
	if status >= entities.PlanApproved {
		if err := plan.Approve(now); err != nil {
			panic(err)
		}
	}
	if status >= entities.PlanScheduled {
		if err := plan.MarkScheduled(now); err != nil {
			panic(err)
		}
	}

	err := store.RunInTransaction(context.Background(), func(tx repositories.Tx) error {
		return tx.Plans().SavePlan(plan)
	})
	if err != nil {
		panic(err)
	}
	return plan
}

// SeedCompletedOrder stores a completed order for recipe, dated planDate
func SeedCompletedOrder(store *memory.Store, code, recipeCode string, planDate time.Time, actual string) *entities.WorkOrder {
	now := planDate.Add(8 * time.Hour)
	wo := &entities.WorkOrder{
		ID:              uuid.NewSHA1(uuid.NameSpaceOID, []byte(code)),
		Code:            code,
		RecipeCode:      recipeCode,
		PlanDate:        planDate,
		PlannedQuantity: D(actual),
		ActualQuantity:  decimal.NewNullDecimal(D(actual)),
		Status:          entities.WorkOrderCompleted,
		CompletedAt:     &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := store.RunInTransaction(context.Background(), func(tx repositories.Tx) error {
		return tx.WorkOrders().SaveWorkOrder(wo)
	})
	if err != nil {
		panic(err)
	}
	return wo
}

// BakeryStock returns a stock ledger with ample quantities of every ingredient
func BakeryStock() *stockmem.StockBackend {
	stock := stockmem.NewStockBackend()
	for _, sku := range []entities.SKU{Flour, Water, Yeast, Butter, Eggs} {
		stock.SetOnHand(sku, D("1000"))
	}
	return stock
}
