package dto

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/craftsman/pkg/domain/entities"
)

// InputShortage is one material the day's plan cannot be covered for
type InputShortage struct {
	SKU       entities.SKU
	Required  decimal.Decimal
	Available decimal.Decimal
	Shortage  decimal.Decimal
}

// ScheduleResult contains the outcome of scheduling a plan
type ScheduleResult struct {
	Success    bool
	Plan       *entities.Plan
	WorkOrders []*entities.WorkOrder
	Shortages  []InputShortage
	// Reserved is true when materials were held for every created order
	Reserved bool
	Message  string
}

// Suggestion is a forecast for one recipe on one date
type Suggestion struct {
	RecipeCode        string
	HistoricalAverage decimal.Decimal
	Committed         decimal.Decimal
	Suggested         decimal.Decimal
	SampleSize        int
}
