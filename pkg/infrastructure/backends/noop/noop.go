// Package noop provides backends that never block production: all
// materials are available and no demand is committed.
package noop

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/craftsman/pkg/domain/backends"
	"github.com/vsinha/craftsman/pkg/domain/entities"
)

// DemandBackend reports zero committed demand
type DemandBackend struct{}

var _ backends.DemandBackend = DemandBackend{}

// Committed always returns zero
func (DemandBackend) Committed(context.Context, entities.ItemRef, time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// StockBackend accepts every request
type StockBackend struct{}

var _ backends.StockBackend = StockBackend{}

// Available reports every need as exactly available
func (StockBackend) Available(_ context.Context, needs []backends.MaterialNeed) (backends.AvailabilityResult, error) {
	result := backends.AvailabilityResult{AllAvailable: true}
	for _, n := range needs {
		result.Materials = append(result.Materials, backends.MaterialStatus{SKU: n.SKU, Needed: n.Quantity, Available: n.Quantity})
	}
	return result, nil
}

// Reserve returns placeholder holds
func (StockBackend) Reserve(_ context.Context, needs []backends.MaterialNeed, _ uuid.UUID, _ map[string]string) (backends.ReserveResult, error) {
	result := backends.ReserveResult{Success: true}
	for i, n := range needs {
		result.Holds = append(result.Holds, backends.MaterialHold{SKU: n.SKU, Quantity: n.Quantity, HoldID: fmt.Sprintf("mock:%d", i)})
	}
	return result, nil
}

// Consume reports success without moving anything
func (StockBackend) Consume(context.Context, uuid.UUID, []backends.MaterialUsed) (backends.ConsumeResult, error) {
	return backends.ConsumeResult{Success: true}, nil
}

// Release reports success without moving anything
func (StockBackend) Release(context.Context, uuid.UUID, string) (backends.ReleaseResult, error) {
	return backends.ReleaseResult{Success: true}, nil
}

// Receive reports success without a receipt
func (StockBackend) Receive(context.Context, entities.SKU, decimal.Decimal, uuid.UUID, string, map[string]string) (backends.ReceiveResult, error) {
	return backends.ReceiveResult{Success: true}, nil
}
