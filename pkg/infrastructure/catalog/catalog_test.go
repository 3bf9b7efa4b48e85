package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/domain/repositories"
	stockmem "github.com/vsinha/craftsman/pkg/infrastructure/backends/memory"
	"github.com/vsinha/craftsman/pkg/infrastructure/repositories/memory"
)

const cyclic = `
recipes:
  - code: alpha
    output_sku: ALPHA
    output_quantity: "1"
    steps: [Mix]
    items:
      - {sku: BETA, quantity: "1"}
  - code: beta
    output_sku: BETA
    output_quantity: "1"
    steps: [Mix]
    items:
      - {sku: ALPHA, quantity: "1"}
      - {sku: SALT, quantity: "0.5", kind: material}
`

func TestLoadFile_Example(t *testing.T) {
	c, err := LoadFile(filepath.Join("..", "..", "..", "example", "bakery.yaml"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if len(c.Categories) != 5 || len(c.Recipes) != 4 || len(c.Plan) != 3 {
		t.Fatalf("Expected 5 categories, 4 recipes and 3 plan lines, got %d, %d and %d", len(c.Categories), len(c.Recipes), len(c.Plan))
	}
	if len(c.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", c.Warnings)
	}

	bread := c.Recipes[1]
	if bread.Code != "pao-frances" || bread.DurationMinutes != 180 || bread.WorkCenter != "oven-1" {
		t.Errorf("Unexpected bread recipe %+v", bread)
	}
	if bread.Items[0].Item.Kind != entities.Product {
		t.Error("Expected dough line to be inferred as a sub-recipe")
	}
	if !c.Recipes[0].OutputQuantity.Equal(decimal.RequireFromString("1.96")) {
		t.Errorf("Expected dough output 1.96, got %s", c.Recipes[0].OutputQuantity)
	}

	if c.Plan[0].Priority != 80 || c.Plan[1].Priority != entities.DefaultPriority {
		t.Errorf("Expected priorities 80 and default, got %d and %d", c.Plan[0].Priority, c.Plan[1].Priority)
	}
	if c.Stock[0].SKU != "BUTTER" {
		t.Errorf("Expected stock sorted by sku, got %s first", c.Stock[0].SKU)
	}
}

func TestParse_CycleIsWarning(t *testing.T) {
	c, err := Parse([]byte(cyclic))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(c.Warnings) != 1 || !strings.Contains(c.Warnings[0], "recipe cycle detected") {
		t.Errorf("Expected one cycle warning, got %v", c.Warnings)
	}
	if c.Recipes[1].Items[1].Item.Kind != entities.Material {
		t.Error("Expected explicit material kind")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "  \n", "document is empty"},
		{"bad yaml", "recipes: [", "decode"},
		{"no steps", "recipes:\n  - {code: a, output_sku: A, output_quantity: \"1\"}", "at least one step is required"},
		{"zero output", "recipes:\n  - {code: a, output_sku: A, output_quantity: \"0\", steps: [Mix]}", "output quantity must be positive"},
		{"bad quantity", "recipes:\n  - {code: a, output_sku: A, output_quantity: \"1\", steps: [Mix], items: [{sku: X, quantity: lots}]}", "invalid quantity"},
		{"unknown kind", "recipes:\n  - {code: a, output_sku: A, output_quantity: \"1\", steps: [Mix], items: [{sku: X, quantity: \"1\", kind: tool}]}", "unknown kind"},
		{"duplicate output", "recipes:\n  - {code: a, output_sku: A, output_quantity: \"1\", steps: [Mix]}\n  - {code: b, output_sku: A, output_quantity: \"1\", steps: [Mix]}", "more than one active recipe produces A"},
		{"bad stock", "stock: {FLOUR: many}", "stock FLOUR"},
		{"bad plan", "plan: [{recipe: a, quantity: x}]", "plan line 1"},
		{"category without code", "categories: [{name: Flours}]", "category without code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := LoadFile(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestCatalog_Seed(t *testing.T) {
	c, err := LoadFile(filepath.Join("..", "..", "..", "example", "bakery.yaml"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	store := memory.NewStore()
	if err := c.Seed(context.Background(), store); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	err = store.View(context.Background(), func(tx repositories.Tx) error {
		recipes, err := tx.Recipes().GetAllRecipes()
		if err != nil {
			return err
		}
		if len(recipes) != 4 {
			t.Errorf("Expected 4 stored recipes, got %d", len(recipes))
		}
		categories, _ := tx.Recipes().GetCategories()
		if len(categories) != 5 || categories[0].Code != "flours" {
			t.Errorf("Expected categories by sort order, got %+v", categories)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}

	stock := stockmem.NewStockBackend()
	c.SeedStock(stock)
	if !stock.OnHand("FLOUR").Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected 50 flour, got %s", stock.OnHand("FLOUR"))
	}

	demand := stockmem.NewDemandBackend()
	date := time.Date(2025, 12, 12, 0, 0, 0, 0, time.UTC)
	c.SeedDemand(demand, date)
	committed, err := demand.Committed(context.Background(), entities.ItemRef{Kind: entities.Product, SKU: "BREAD-FR"}, date)
	if err != nil || !committed.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Expected 30 committed, got %s (%v)", committed, err)
	}
}

func TestCatalog_SeedProducts(t *testing.T) {
	c, err := Parse([]byte(`
recipes:
  - code: croissant
    name: Croissant
    output_sku: CROISSANT
    output_quantity: "10"
    steps: [Baking]
    items:
      - {sku: FLOUR, quantity: "1", unit: kg}
  - code: old-roll
    name: Old Roll
    output_sku: ROLL
    output_quantity: "10"
    steps: [Baking]
    inactive: true
    items:
      - {sku: FLOUR, quantity: "1", unit: kg}
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	products := stockmem.NewProductCatalog()
	c.SeedProducts(products)

	tests := []struct {
		sku   entities.SKU
		valid bool
	}{
		{"CROISSANT", true},
		{"ROLL", false},
		{"FLOUR", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.sku), func(t *testing.T) {
			result, err := products.ValidateOutputSku(context.Background(), tt.sku)
			if err != nil {
				t.Fatalf("ValidateOutputSku failed: %v", err)
			}
			if result.Valid != tt.valid {
				t.Errorf("Expected valid=%v, got %v (%s)", tt.valid, result.Valid, result.Message)
			}
		})
	}
}
