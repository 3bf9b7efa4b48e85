package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vsinha/craftsman/pkg/application/dto"
)

const bakeryCatalog = "../../../../example/bakery.yaml"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(&out)
	cmd.SetArgs(append([]string{"--catalog", bakeryCatalog, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestIngredientsCommand(t *testing.T) {
	xlsx := filepath.Join(t.TempDir(), "sheet.xlsx")
	out, err := execute(t, "ingredients", "--date", "2025-12-12", "--xlsx", xlsx)
	if err != nil {
		t.Fatalf("ingredients failed: %v", err)
	}

	for _, want := range []string{"Ingredients for Fri 12/12/2025", "Flours", "FLOUR", "10.702", "Other", "EGGS", "Workbook saved to"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
	if _, err := os.Stat(xlsx); err != nil {
		t.Errorf("Expected workbook at %s, got %v", xlsx, err)
	}
}

func TestForecastCommand_JSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "forecast", "--date", "2025-12-12")
	if err != nil {
		t.Fatalf("forecast failed: %v", err)
	}

	var suggestions []dto.Suggestion
	if err := json.Unmarshal([]byte(out), &suggestions); err != nil {
		t.Fatalf("Expected JSON output, got %v\n%s", err, out)
	}
	if len(suggestions) != 3 {
		t.Fatalf("Expected 3 sellable recipes, got %d", len(suggestions))
	}
	if suggestions[2].RecipeCode != "pao-frances" {
		t.Errorf("Expected pao-frances last, got %s", suggestions[2].RecipeCode)
	}
	if !suggestions[2].Committed.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Expected committed 30, got %s", suggestions[2].Committed)
	}
}

func TestScheduleCommand(t *testing.T) {
	out, err := execute(t, "schedule", "--date", "2025-12-12", "--reserve")
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	for _, want := range []string{"scheduled (reserved: true)", "pao-frances", "croissant", "brioche", "pending"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRunCommand(t *testing.T) {
	out, err := execute(t, "run", "--date", "2025-12-12", "--reserve", "--actor", "ana")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := strings.Count(out, " completed "); got != 3 {
		t.Errorf("Expected 3 completed orders, got %d:\n%s", got, out)
	}
	for _, want := range []string{
		`craftsman_events_total{type="craft.materials_needed"} 3`,
		`craftsman_events_total{type="craft.production_completed"} 3`,
		`craftsman_produced_quantity_total{recipe="croissant"} 40`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad date", []string{"ingredients", "--date", "12/12/2025"}, "invalid date"},
		{"bad start", []string{"schedule", "--date", "2025-12-12", "--start", "9h"}, "invalid start time"},
		{"bad format", []string{"--format", "xml", "forecast", "--date", "2025-12-12"}, "unsupported output format: xml"},
		{"missing catalog", []string{"--catalog", "missing.yaml", "forecast"}, "no such file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
