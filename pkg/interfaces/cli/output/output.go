package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vsinha/craftsman/pkg/application/dto"
	"github.com/vsinha/craftsman/pkg/domain/entities"
)

// Formats accepted by the writers below
const (
	FormatText = "text"
	FormatJSON = "json"
)

func checkFormat(format string) error {
	switch format {
	case FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}

// Ingredients writes the production sheet grouped by category
func Ingredients(w io.Writer, format string, sheet dto.DailyIngredients) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	if format == FormatJSON {
		return writeJSON(w, sheet)
	}

	fmt.Fprintf(w, "🧾 Ingredients for %s\n", sheet.Date.Format("Mon 02/01/2006"))
	fmt.Fprintf(w, "==============================\n\n")
	if len(sheet.Categories) == 0 {
		fmt.Fprintln(w, "No plan for this date.")
		return nil
	}

	for _, category := range sheet.Categories {
		fmt.Fprintf(w, "%s\n", category.Category)
		fmt.Fprintf(w, "  %-24s %-12s %12s %-5s %-8s\n", "Ingredient", "SKU", "Quantity", "Unit", "Coef")
		for _, ing := range category.Ingredients {
			fmt.Fprintf(w, "  %-24s %-12s %12s %-5s %-8s\n",
				ing.ItemName,
				ing.SKU,
				ing.TotalQuantity.StringFixed(3),
				ing.Unit,
				ing.Coefficient.String())
			fmt.Fprintf(w, "      used in: %s\n", strings.Join(ing.UsedIn, "; "))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// Schedule writes the outcome of scheduling a plan
func Schedule(w io.Writer, format string, result *dto.ScheduleResult) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	if format == FormatJSON {
		return writeJSON(w, result)
	}

	if !result.Success {
		fmt.Fprintf(w, "⚠️  Scheduling failed: %s\n", result.Message)
		if len(result.Shortages) > 0 {
			fmt.Fprintf(w, "%-12s %12s %12s %12s\n", "SKU", "Required", "Available", "Shortage")
			for _, s := range result.Shortages {
				fmt.Fprintf(w, "%-12s %12s %12s %12s\n", s.SKU, s.Required.String(), s.Available.String(), s.Shortage.String())
			}
		}
		return nil
	}

	label := ""
	if result.Plan != nil {
		label = result.Plan.Label()
	}
	fmt.Fprintf(w, "📅 %s scheduled (reserved: %v)\n", label, result.Reserved)
	return writeOrders(w, result.WorkOrders)
}

// WorkOrders writes a work order table
func WorkOrders(w io.Writer, format string, orders []*entities.WorkOrder) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	if format == FormatJSON {
		return writeJSON(w, orders)
	}
	return writeOrders(w, orders)
}

func writeOrders(w io.Writer, orders []*entities.WorkOrder) error {
	fmt.Fprintf(w, "%-15s %-20s %10s %10s %-12s %-8s %-8s\n", "Code", "Recipe", "Planned", "Actual", "Status", "Start", "Location")
	fmt.Fprintf(w, "%-15s %-20s %10s %10s %-12s %-8s %-8s\n",
		"---------------", "--------------------", "----------", "----------", "------------", "--------", "--------")
	for _, wo := range orders {
		actual := "-"
		if wo.ActualQuantity.Valid {
			actual = wo.ActualQuantity.Decimal.String()
		}
		fmt.Fprintf(w, "%-15s %-20s %10s %10s %-12s %-8s %-8s\n",
			wo.Code,
			wo.RecipeCode,
			wo.PlannedQuantity.String(),
			actual,
			wo.Status,
			clock(wo.ScheduledStart),
			wo.Location)
	}
	_, err := fmt.Fprintln(w)
	return err
}

// Suggestions writes forecast suggestions for a date
func Suggestions(w io.Writer, format string, date time.Time, suggestions []dto.Suggestion) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	if format == FormatJSON {
		return writeJSON(w, suggestions)
	}

	fmt.Fprintf(w, "📈 Suggested production for %s\n", date.Format("Mon 02/01/2006"))
	fmt.Fprintf(w, "%-20s %10s %10s %10s %8s\n", "Recipe", "Average", "Committed", "Suggested", "Samples")
	for _, s := range suggestions {
		fmt.Fprintf(w, "%-20s %10s %10s %10s %8d\n",
			s.RecipeCode,
			s.HistoricalAverage.StringFixed(2),
			s.Committed.String(),
			s.Suggested.StringFixed(2),
			s.SampleSize)
	}
	return nil
}

func clock(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("15:04")
}
