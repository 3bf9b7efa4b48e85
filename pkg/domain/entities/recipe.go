package entities

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SKU represents a stock keeping unit code
type SKU string

// ItemKind tags what an ItemRef points to
type ItemKind int

const (
	Material ItemKind = iota
	Product
)

// String method for ItemKind enum
func (k ItemKind) String() string {
	switch k {
	case Material:
		return "Material"
	case Product:
		return "Product"
	default:
		return "Unknown"
	}
}

// ItemRef is a tagged reference to any catalog item. A reference that
// matches another recipe's output makes the line a sub-recipe.
type ItemRef struct {
	Kind ItemKind
	SKU  SKU
}

// String returns the SKU of the referenced item
func (r ItemRef) String() string {
	return string(r.SKU)
}

// IngredientCategory groups recipe lines for reporting
type IngredientCategory struct {
	Code      string
	Name      string
	SortOrder int
	IsActive  bool
}

// Recipe is the bill of materials for one output item
type Recipe struct {
	ID              uuid.UUID
	Code            string
	Name            string
	Output          ItemRef
	OutputQuantity  decimal.Decimal
	WorkCenter      string
	LeadTimeDays    int
	Steps           []string
	DurationMinutes int
	IsActive        bool
	Items           []RecipeItem
	Notes           string
}

// NewRecipe creates a validated, active Recipe
func NewRecipe(code, name string, output ItemRef, outputQuantity decimal.Decimal, steps []string) (*Recipe, error) {
	if code == "" {
		return nil, fmt.Errorf("recipe code cannot be empty")
	}
	if output.SKU == "" {
		return nil, fmt.Errorf("output sku cannot be empty")
	}
	if !outputQuantity.IsPositive() {
		return nil, fmt.Errorf("output quantity must be positive, got %s", outputQuantity)
	}
	for i, s := range steps {
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("step %d must be a non-empty string", i+1)
		}
	}
	if name == "" {
		name = code
	}

	return &Recipe{
		ID:             uuid.New(),
		Code:           code,
		Name:           name,
		Output:         output,
		OutputQuantity: outputQuantity,
		Steps:          append([]string(nil), steps...),
		IsActive:       true,
	}, nil
}

// AddItem appends a BOM line. Only one active line per item is allowed.
func (r *Recipe) AddItem(item RecipeItem) error {
	if item.IsActive {
		for _, existing := range r.Items {
			if existing.IsActive && existing.Item == item.Item {
				return fmt.Errorf("recipe %s already has an active line for %s", r.Code, item.Item)
			}
		}
	}
	r.Items = append(r.Items, item)
	return nil
}

// ActiveItems returns the lines that take part in requirement calculation
func (r *Recipe) ActiveItems() []RecipeItem {
	active := make([]RecipeItem, 0, len(r.Items))
	for _, item := range r.Items {
		if item.IsActive {
			active = append(active, item)
		}
	}
	return active
}

// LastStep returns the final declared step, or "" when none are declared
func (r *Recipe) LastStep() string {
	if len(r.Steps) == 0 {
		return ""
	}
	return r.Steps[len(r.Steps)-1]
}

// StepIndex returns the position of a step name, or -1
func (r *Recipe) StepIndex(name string) int {
	for i, s := range r.Steps {
		if s == name {
			return i
		}
	}
	return -1
}

// HasStep reports whether name is a declared step
func (r *Recipe) HasStep(name string) bool {
	return r.StepIndex(name) >= 0
}

// Coefficient returns how many base batches are needed for a planned
// quantity. Falls back to 1 when the output quantity is not positive.
func (r *Recipe) Coefficient(planned decimal.Decimal) decimal.Decimal {
	if !r.OutputQuantity.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return planned.Div(r.OutputQuantity)
}

// Requirements scales every active line by the recipe coefficient
func (r *Recipe) Requirements(planned decimal.Decimal) []Requirement {
	coefficient := r.Coefficient(planned)

	requirements := make([]Requirement, 0, len(r.Items))
	for _, item := range r.ActiveItems() {
		requirements = append(requirements, Requirement{
			Item:         item.Item,
			Name:         item.DisplayName(),
			Quantity:     item.Quantity.Mul(coefficient),
			Unit:         item.Unit,
			PositionCode: item.PositionCode,
		})
	}
	return requirements
}

// Clone returns a deep copy
func (r *Recipe) Clone() *Recipe {
	c := *r
	c.Steps = append([]string(nil), r.Steps...)
	c.Items = append([]RecipeItem(nil), r.Items...)
	return &c
}

// RecipeItem is one BOM line, quantities are per base batch
type RecipeItem struct {
	Item             ItemRef
	Name             string
	Category         string
	Quantity         decimal.Decimal
	Unit             string
	PositionCode     string
	IsAlternative    bool
	AlternativeGroup string
	IsActive         bool
	Notes            string
}

// NewRecipeItem creates a validated, active RecipeItem
func NewRecipeItem(item ItemRef, quantity decimal.Decimal, unit string) (*RecipeItem, error) {
	if item.SKU == "" {
		return nil, fmt.Errorf("item sku cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("item quantity must be positive, got %s", quantity)
	}
	if unit == "" {
		unit = "kg"
	}

	return &RecipeItem{
		Item:     item,
		Quantity: quantity,
		Unit:     unit,
		IsActive: true,
	}, nil
}

// DisplayName returns the item name, falling back to its SKU
func (i RecipeItem) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return string(i.Item.SKU)
}

// Requirement is a scaled material need for one production run
type Requirement struct {
	Item         ItemRef
	Name         string
	Quantity     decimal.Decimal
	Unit         string
	PositionCode string
}
