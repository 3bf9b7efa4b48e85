package ingredients

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vsinha/craftsman/pkg/application/dto"
	"github.com/vsinha/craftsman/pkg/domain/entities"
)

// OtherCategory collects lines recorded without a category
const OtherCategory = "Other"

type totalKey struct {
	sku  entities.SKU
	unit string
}

// IngredientVisitor accumulates terminal lines into per-ingredient totals
type IngredientVisitor struct {
	categoryNames map[string]string
	totals        map[totalKey]*dto.IngredientTotal
	order         []totalKey
}

// NewIngredientVisitor creates a visitor resolving category codes to names
func NewIngredientVisitor(categories []entities.IngredientCategory) *IngredientVisitor {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.Code] = c.Name
	}
	return &IngredientVisitor{
		categoryNames: names,
		totals:        make(map[totalKey]*dto.IngredientTotal),
	}
}

// VisitLine adds one scaled line to the running totals
func (v *IngredientVisitor) VisitLine(_ context.Context, node RecipeNodeContext) error {
	key := totalKey{sku: node.Line.Item.SKU, unit: node.Line.Unit}

	total, ok := v.totals[key]
	if !ok {
		total = &dto.IngredientTotal{
			ItemName:      node.Line.DisplayName(),
			SKU:           node.Line.Item.SKU,
			TotalQuantity: decimal.Zero,
			Unit:          node.Line.Unit,
			Coefficient:   decimal.Zero,
		}
		v.totals[key] = total
		v.order = append(v.order, key)
	}

	total.TotalQuantity = total.TotalQuantity.Add(node.Quantity)
	total.Category = v.categoryName(node.Line.Category)
	total.Coefficient = total.Coefficient.Add(node.RootCoefficient)
	if !contains(total.UsedIn, node.Trail) {
		total.UsedIn = append(total.UsedIn, node.Trail)
	}
	return nil
}

func (v *IngredientVisitor) categoryName(code string) string {
	if code == "" {
		return OtherCategory
	}
	if name, ok := v.categoryNames[code]; ok {
		return name
	}
	return code
}

// Totals returns the accumulated totals in first-seen order, quantities
// rounded to three decimals
func (v *IngredientVisitor) Totals() []dto.IngredientTotal {
	out := make([]dto.IngredientTotal, 0, len(v.order))
	for _, key := range v.order {
		t := *v.totals[key]
		t.TotalQuantity = t.TotalQuantity.RoundBank(3)
		t.UsedIn = append([]string(nil), t.UsedIn...)
		out = append(out, t)
	}
	return out
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
