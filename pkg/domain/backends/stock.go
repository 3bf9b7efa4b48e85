// Package backends defines the contracts of the external systems the
// production engine talks to: stock, committed demand and the product catalog.
package backends

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/craftsman/pkg/domain/entities"
)

// MaterialNeed is a quantity of one material required by a work order
type MaterialNeed struct {
	SKU          entities.SKU
	Quantity     decimal.Decimal
	Unit         string
	PositionCode string
}

// MaterialUsed is a quantity actually moved for one material
type MaterialUsed struct {
	SKU      entities.SKU
	Quantity decimal.Decimal
}

// MaterialStatus compares the needed and available quantity of a material
type MaterialStatus struct {
	SKU       entities.SKU
	Needed    decimal.Decimal
	Available decimal.Decimal
}

// Sufficient reports whether the available quantity covers the need
func (s MaterialStatus) Sufficient() bool {
	return s.Available.GreaterThanOrEqual(s.Needed)
}

// Shortage returns how much is missing, never negative
func (s MaterialStatus) Shortage() decimal.Decimal {
	short := s.Needed.Sub(s.Available)
	if short.IsNegative() {
		return decimal.Zero
	}
	return short
}

// AvailabilityResult is the answer to an availability check
type AvailabilityResult struct {
	AllAvailable bool
	Materials    []MaterialStatus
}

// Shortages returns the materials that are not sufficient
func (r AvailabilityResult) Shortages() []MaterialStatus {
	var short []MaterialStatus
	for _, m := range r.Materials {
		if !m.Sufficient() {
			short = append(short, m)
		}
	}
	return short
}

// MaterialHold is a reservation created by the stock system
type MaterialHold struct {
	SKU      entities.SKU
	Quantity decimal.Decimal
	HoldID   string
}

// ReserveResult is the outcome of a reservation request
type ReserveResult struct {
	Success bool
	Holds   []MaterialHold
	Failed  []MaterialStatus
	Message string
}

// MaterialAdjustment is a difference between reserved and consumed quantity
type MaterialAdjustment struct {
	SKU      entities.SKU
	Reserved decimal.Decimal
	Consumed decimal.Decimal
}

// Delta is consumed minus reserved
func (a MaterialAdjustment) Delta() decimal.Decimal {
	return a.Consumed.Sub(a.Reserved)
}

// ConsumeResult is the outcome of consuming a work order's holds
type ConsumeResult struct {
	Success     bool
	Consumed    []MaterialUsed
	Adjustments []MaterialAdjustment
	Message     string
}

// ReleaseResult is the outcome of releasing a work order's holds
type ReleaseResult struct {
	Success  bool
	Released []MaterialUsed
	Message  string
}

// ReceiveResult is the outcome of receiving finished goods
type ReceiveResult struct {
	Success   bool
	ReceiptID string
	Message   string
}

// StockBackend is the inventory system. Holds are keyed by work order id.
type StockBackend interface {
	Available(ctx context.Context, needs []MaterialNeed) (AvailabilityResult, error)
	Reserve(ctx context.Context, needs []MaterialNeed, workOrderID uuid.UUID, metadata map[string]string) (ReserveResult, error)
	// Consume converts the work order's holds into usage. actual overrides
	// the held quantity per SKU when given.
	Consume(ctx context.Context, workOrderID uuid.UUID, actual []MaterialUsed) (ConsumeResult, error)
	Release(ctx context.Context, workOrderID uuid.UUID, reason string) (ReleaseResult, error)
	Receive(ctx context.Context, sku entities.SKU, quantity decimal.Decimal, workOrderID uuid.UUID, positionCode string, metadata map[string]string) (ReceiveResult, error)
}

// NeedsFor converts scaled recipe requirements into material needs
func NeedsFor(requirements []entities.Requirement) []MaterialNeed {
	needs := make([]MaterialNeed, 0, len(requirements))
	for _, r := range requirements {
		needs = append(needs, MaterialNeed{
			SKU:          r.Item.SKU,
			Quantity:     r.Quantity,
			Unit:         r.Unit,
			PositionCode: r.PositionCode,
		})
	}
	return needs
}

// Consolidate sums needs by SKU, keeping first-seen order
func Consolidate(needs []MaterialNeed) []MaterialNeed {
	index := make(map[entities.SKU]int, len(needs))
	var out []MaterialNeed
	for _, n := range needs {
		if i, ok := index[n.SKU]; ok {
			out[i].Quantity = out[i].Quantity.Add(n.Quantity)
			continue
		}
		index[n.SKU] = len(out)
		out = append(out, n)
	}
	return out
}
