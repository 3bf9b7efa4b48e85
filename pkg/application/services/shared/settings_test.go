package shared

import (
	"testing"
	"time"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.ReserveInputs {
		t.Error("Expected reservation disabled by default")
	}
	if s.SafetyStockPercent.String() != "0.2" {
		t.Errorf("Expected safety stock 0.2, got %s", s.SafetyStockPercent)
	}
	if s.HistoricalDays != 28 || !s.SameWeekdayOnly || s.MaxBOMDepth != 5 || s.CodePrefix != "WO" {
		t.Errorf("Unexpected defaults %+v", s)
	}
}

func TestSettings_StartOf(t *testing.T) {
	s := DefaultSettings()
	got := s.StartOf(time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC))
	want := time.Date(2026, 2, 27, 6, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
