package output

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/craftsman/pkg/application/dto"
)

const ingredientsSheet = "Ingredients"

var ingredientHeaders = []string{"Category", "Ingredient", "SKU", "Quantity", "Unit", "Coefficient", "Used in"}

// IngredientsWorkbook renders the production sheet as a spreadsheet, one
// row per ingredient
func IngredientsWorkbook(sheet dto.DailyIngredients) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ingredientsSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	boldStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	f.SetCellValue(ingredientsSheet, "A1", "Date")
	f.SetCellValue(ingredientsSheet, "B1", sheet.Date.Format("2006-01-02"))
	for i, h := range ingredientHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		f.SetCellValue(ingredientsSheet, cell, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(ingredientHeaders), 3)
	f.SetCellStyle(ingredientsSheet, "A3", last, boldStyle)

	row := 4
	for _, category := range sheet.Categories {
		for _, ing := range category.Ingredients {
			f.SetCellValue(ingredientsSheet, fmt.Sprintf("A%d", row), category.Category)
			f.SetCellValue(ingredientsSheet, fmt.Sprintf("B%d", row), ing.ItemName)
			f.SetCellValue(ingredientsSheet, fmt.Sprintf("C%d", row), string(ing.SKU))
			f.SetCellValue(ingredientsSheet, fmt.Sprintf("D%d", row), ing.TotalQuantity.InexactFloat64())
			f.SetCellValue(ingredientsSheet, fmt.Sprintf("E%d", row), ing.Unit)
			f.SetCellValue(ingredientsSheet, fmt.Sprintf("F%d", row), ing.Coefficient.InexactFloat64())
			f.SetCellValue(ingredientsSheet, fmt.Sprintf("G%d", row), strings.Join(ing.UsedIn, "; "))
			row++
		}
	}

	widths := []float64{14, 28, 14, 12, 8, 12, 48}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(ingredientsSheet, col, col, w)
	}
	return f, nil
}

// SaveIngredientsWorkbook writes the production sheet to path
func SaveIngredientsWorkbook(sheet dto.DailyIngredients, path string) error {
	f, err := IngredientsWorkbook(sheet)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}
