// Package catalog loads bakery master data from YAML: ingredient
// categories, recipes, stock on hand and the lines of a daily plan.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vsinha/craftsman/pkg/domain/backends"
	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/domain/repositories"
	"github.com/vsinha/craftsman/pkg/domain/services"
)

type categoryDoc struct {
	Code      string `yaml:"code"`
	Name      string `yaml:"name"`
	SortOrder int    `yaml:"sort_order"`
	Inactive  bool   `yaml:"inactive"`
}

type itemDoc struct {
	SKU              string `yaml:"sku"`
	Name             string `yaml:"name"`
	Kind             string `yaml:"kind"`
	Quantity         string `yaml:"quantity"`
	Unit             string `yaml:"unit"`
	Category         string `yaml:"category"`
	Position         string `yaml:"position"`
	AlternativeGroup string `yaml:"alternative_group"`
	Inactive         bool   `yaml:"inactive"`
}

type recipeDoc struct {
	Code            string    `yaml:"code"`
	Name            string    `yaml:"name"`
	OutputSKU       string    `yaml:"output_sku"`
	OutputQuantity  string    `yaml:"output_quantity"`
	WorkCenter      string    `yaml:"work_center"`
	LeadTimeDays    int       `yaml:"lead_time_days"`
	DurationMinutes int       `yaml:"duration_minutes"`
	Steps           []string  `yaml:"steps"`
	Items           []itemDoc `yaml:"items"`
	Inactive        bool      `yaml:"inactive"`
}

type planLineDoc struct {
	Recipe      string `yaml:"recipe"`
	Quantity    string `yaml:"quantity"`
	Destination string `yaml:"destination"`
	Priority    *int   `yaml:"priority"`
}

type document struct {
	Categories []categoryDoc     `yaml:"categories"`
	Recipes    []recipeDoc       `yaml:"recipes"`
	Stock      map[string]string `yaml:"stock"`
	Demand     map[string]string `yaml:"demand"`
	Plan       []planLineDoc     `yaml:"plan"`
}

// StockLevel is an on-hand quantity for one SKU
type StockLevel struct {
	SKU      entities.SKU
	Quantity decimal.Decimal
}

// PlanLine is a recipe to be added to a daily plan
type PlanLine struct {
	RecipeCode  string
	Quantity    decimal.Decimal
	Destination string
	Priority    int
}

// Catalog is decoded, validated master data
type Catalog struct {
	Categories []entities.IngredientCategory
	Recipes    []*entities.Recipe
	Stock      []StockLevel
	// Demand is quantity already committed to customers per output SKU
	Demand   []StockLevel
	Plan     []PlanLine
	Warnings []string
}

// Parse decodes a catalog document. Recipe cycles are reported as
// warnings; malformed values and duplicate outputs are errors.
func Parse(data []byte) (*Catalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("catalog: document is empty")
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}

	c := &Catalog{}
	for _, cat := range doc.Categories {
		if cat.Code == "" {
			return nil, fmt.Errorf("catalog: category without code")
		}
		name := cat.Name
		if name == "" {
			name = cat.Code
		}
		c.Categories = append(c.Categories, entities.IngredientCategory{
			Code:      cat.Code,
			Name:      name,
			SortOrder: cat.SortOrder,
			IsActive:  !cat.Inactive,
		})
	}

	outputs := make(map[string]bool, len(doc.Recipes))
	for _, r := range doc.Recipes {
		outputs[r.OutputSKU] = true
	}
	for _, r := range doc.Recipes {
		recipe, err := r.toRecipe(outputs)
		if err != nil {
			return nil, fmt.Errorf("catalog: recipe %q: %w", r.Code, err)
		}
		c.Recipes = append(c.Recipes, recipe)
	}

	validation := services.NewRecipeValidator().ValidateRecipes(c.Recipes)
	if len(validation.Errors) > 0 {
		return nil, fmt.Errorf("catalog: %s", strings.Join(validation.Errors, "; "))
	}
	c.Warnings = append(c.Warnings, validation.Warnings...)

	var err error
	if c.Stock, err = levels("stock", doc.Stock); err != nil {
		return nil, err
	}
	if c.Demand, err = levels("demand", doc.Demand); err != nil {
		return nil, err
	}

	for i, line := range doc.Plan {
		qty, err := decimal.NewFromString(line.Quantity)
		if err != nil {
			return nil, fmt.Errorf("catalog: plan line %d: invalid quantity %q", i+1, line.Quantity)
		}
		priority := entities.DefaultPriority
		if line.Priority != nil {
			priority = *line.Priority
		}
		c.Plan = append(c.Plan, PlanLine{
			RecipeCode:  line.Recipe,
			Quantity:    qty,
			Destination: line.Destination,
			Priority:    priority,
		})
	}

	return c, nil
}

// LoadFile reads and parses a catalog file
func LoadFile(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	c, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (r recipeDoc) toRecipe(outputs map[string]bool) (*entities.Recipe, error) {
	if len(r.Steps) == 0 {
		return nil, fmt.Errorf("at least one step is required")
	}
	outputQty, err := decimal.NewFromString(r.OutputQuantity)
	if err != nil {
		return nil, fmt.Errorf("invalid output quantity %q", r.OutputQuantity)
	}

	recipe, err := entities.NewRecipe(r.Code, r.Name, entities.ItemRef{Kind: entities.Product, SKU: entities.SKU(r.OutputSKU)}, outputQty, r.Steps)
	if err != nil {
		return nil, err
	}
	recipe.WorkCenter = r.WorkCenter
	recipe.LeadTimeDays = r.LeadTimeDays
	recipe.DurationMinutes = r.DurationMinutes
	recipe.IsActive = !r.Inactive

	for _, it := range r.Items {
		qty, err := decimal.NewFromString(it.Quantity)
		if err != nil {
			return nil, fmt.Errorf("item %s: invalid quantity %q", it.SKU, it.Quantity)
		}
		kind := entities.Material
		switch strings.ToLower(it.Kind) {
		case "product":
			kind = entities.Product
		case "material":
		case "":
			if outputs[it.SKU] {
				kind = entities.Product
			}
		default:
			return nil, fmt.Errorf("item %s: unknown kind %q", it.SKU, it.Kind)
		}

		line, err := entities.NewRecipeItem(entities.ItemRef{Kind: kind, SKU: entities.SKU(it.SKU)}, qty, it.Unit)
		if err != nil {
			return nil, err
		}
		line.Name = it.Name
		line.Category = it.Category
		line.PositionCode = it.Position
		line.AlternativeGroup = it.AlternativeGroup
		line.IsAlternative = it.AlternativeGroup != ""
		line.IsActive = !it.Inactive
		if err := recipe.AddItem(*line); err != nil {
			return nil, err
		}
	}
	return recipe, nil
}

func levels(section string, raw map[string]string) ([]StockLevel, error) {
	out := make([]StockLevel, 0, len(raw))
	for sku, value := range raw {
		qty, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("catalog: %s %s: invalid quantity %q", section, sku, value)
		}
		out = append(out, StockLevel{SKU: entities.SKU(sku), Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

// Seed stores the categories and recipes in one transaction
func (c *Catalog) Seed(ctx context.Context, store repositories.Transactor) error {
	return store.RunInTransaction(ctx, func(tx repositories.Tx) error {
		for _, cat := range c.Categories {
			if err := tx.Recipes().SaveCategory(cat); err != nil {
				return fmt.Errorf("failed to save category %s: %w", cat.Code, err)
			}
		}
		for _, recipe := range c.Recipes {
			if err := tx.Recipes().SaveRecipe(recipe); err != nil {
				return fmt.Errorf("failed to save recipe %s: %w", recipe.Code, err)
			}
		}
		return nil
	})
}

// StockSetter is a ledger whose on-hand quantities can be overwritten
type StockSetter interface {
	SetOnHand(sku entities.SKU, quantity decimal.Decimal)
}

// SeedStock writes every stock level into ledger
func (c *Catalog) SeedStock(ledger StockSetter) {
	for _, level := range c.Stock {
		ledger.SetOnHand(level.SKU, level.Quantity)
	}
}

// DemandCommitter records customer demand for a product on a date
type DemandCommitter interface {
	Commit(sku entities.SKU, date time.Time, quantity decimal.Decimal)
}

// SeedDemand commits every demand level on date
func (c *Catalog) SeedDemand(demand DemandCommitter, date time.Time) {
	for _, level := range c.Demand {
		demand.Commit(level.SKU, date, level.Quantity)
	}
}

// ProductRegistrar accepts product master entries
type ProductRegistrar interface {
	Add(info backends.ProductInfo)
}

// SeedProducts registers the output of every recipe as a product
func (c *Catalog) SeedProducts(products ProductRegistrar) {
	for _, r := range c.Recipes {
		products.Add(backends.ProductInfo{
			SKU:      r.Output.SKU,
			Name:     r.Name,
			IsActive: r.IsActive,
		})
	}
}
