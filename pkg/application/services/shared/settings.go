package shared

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings tunes planning, forecasting and scheduling
type Settings struct {
	// ReserveInputs makes scheduling hold materials unless overridden per call
	ReserveInputs      bool
	SafetyStockPercent decimal.Decimal
	HistoricalDays     int
	SameWeekdayOnly    bool
	// DefaultStartHour is the hour of day orders start when no time is given
	DefaultStartHour int
	MaxBOMDepth      int
	CodePrefix       string
	Location         *time.Location
}

// DefaultSettings returns the stock configuration
func DefaultSettings() Settings {
	return Settings{
		ReserveInputs:      false,
		SafetyStockPercent: decimal.RequireFromString("0.20"),
		HistoricalDays:     28,
		SameWeekdayOnly:    true,
		DefaultStartHour:   6,
		MaxBOMDepth:        5,
		CodePrefix:         "WO",
		Location:           time.UTC,
	}
}

// StartOf returns the default start time on the calendar day of date
func (s Settings) StartOf(date time.Time) time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, s.DefaultStartHour, 0, 0, 0, loc)
}
