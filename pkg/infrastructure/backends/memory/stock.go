// Package memory provides in-process backends for tests, demos and the CLI.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/craftsman/pkg/domain/backends"
	"github.com/vsinha/craftsman/pkg/domain/entities"
)

type holdStatus int

const (
	holdOpen holdStatus = iota
	holdConsumed
	holdReleased
)

type hold struct {
	id       string
	sku      entities.SKU
	quantity decimal.Decimal
	used     decimal.Decimal
	status   holdStatus
	metadata map[string]string
}

// Receipt is a finished-goods entry recorded by Receive
type Receipt struct {
	ID           string
	SKU          entities.SKU
	Quantity     decimal.Decimal
	WorkOrderID  uuid.UUID
	PositionCode string
}

// StockBackend is a ledger of on-hand quantities and holds per work order.
// Available quantity is on hand minus open holds.
type StockBackend struct {
	mu       sync.Mutex
	onHand   map[entities.SKU]decimal.Decimal
	holds    map[uuid.UUID][]*hold
	receipts []Receipt
}

var _ backends.StockBackend = (*StockBackend)(nil)

// NewStockBackend creates an empty ledger
func NewStockBackend() *StockBackend {
	return &StockBackend{
		onHand: make(map[entities.SKU]decimal.Decimal),
		holds:  make(map[uuid.UUID][]*hold),
	}
}

// SetOnHand overwrites the on-hand quantity of a SKU
func (s *StockBackend) SetOnHand(sku entities.SKU, quantity decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onHand[sku] = quantity
}

// OnHand returns the physical quantity of a SKU
func (s *StockBackend) OnHand(sku entities.SKU) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onHand[sku]
}

// OpenHolds returns the open holds of a work order
func (s *StockBackend) OpenHolds(workOrderID uuid.UUID) []backends.MaterialHold {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []backends.MaterialHold
	for _, h := range s.holds[workOrderID] {
		if h.status == holdOpen {
			out = append(out, backends.MaterialHold{SKU: h.sku, Quantity: h.quantity, HoldID: h.id})
		}
	}
	return out
}

// Receipts returns every finished-goods receipt
func (s *StockBackend) Receipts() []Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Receipt(nil), s.receipts...)
}

func (s *StockBackend) availableLocked(sku entities.SKU) decimal.Decimal {
	available := s.onHand[sku]
	for _, holds := range s.holds {
		for _, h := range holds {
			if h.status == holdOpen && h.sku == sku {
				available = available.Sub(h.quantity)
			}
		}
	}
	return available
}

// Available checks each need against on hand minus open holds
func (s *StockBackend) Available(ctx context.Context, needs []backends.MaterialNeed) (backends.AvailabilityResult, error) {
	if err := ctx.Err(); err != nil {
		return backends.AvailabilityResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	result := backends.AvailabilityResult{AllAvailable: true}
	for _, need := range backends.Consolidate(needs) {
		status := backends.MaterialStatus{SKU: need.SKU, Needed: need.Quantity, Available: s.availableLocked(need.SKU)}
		if !status.Sufficient() {
			result.AllAvailable = false
		}
		result.Materials = append(result.Materials, status)
	}
	return result, nil
}

// Reserve holds every need for the work order or none of them
func (s *StockBackend) Reserve(ctx context.Context, needs []backends.MaterialNeed, workOrderID uuid.UUID, metadata map[string]string) (backends.ReserveResult, error) {
	if err := ctx.Err(); err != nil {
		return backends.ReserveResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var created []*hold
	result := backends.ReserveResult{Success: true}
	for _, need := range backends.Consolidate(needs) {
		available := s.availableLocked(need.SKU)
		if available.LessThan(need.Quantity) {
			result.Success = false
			result.Failed = append(result.Failed, backends.MaterialStatus{SKU: need.SKU, Needed: need.Quantity, Available: available})
			continue
		}
		h := &hold{
			id:       "hold:" + uuid.NewString(),
			sku:      need.SKU,
			quantity: need.Quantity,
			metadata: metadata,
		}
		s.holds[workOrderID] = append(s.holds[workOrderID], h)
		created = append(created, h)
	}

	if !result.Success {
		for _, h := range created {
			h.status = holdReleased
		}
		result.Message = fmt.Sprintf("%d material(s) could not be reserved", len(result.Failed))
		return result, nil
	}

	for _, h := range created {
		result.Holds = append(result.Holds, backends.MaterialHold{SKU: h.sku, Quantity: h.quantity, HoldID: h.id})
	}
	return result, nil
}

// Consume turns the work order's open holds into usage, honouring
// actual quantities where given. Without open holds, actual is issued
// straight from on hand. A work order is consumed once: later calls
// report the recorded usage and move nothing.
func (s *StockBackend) Consume(ctx context.Context, workOrderID uuid.UUID, actual []backends.MaterialUsed) (backends.ConsumeResult, error) {
	if err := ctx.Err(); err != nil {
		return backends.ConsumeResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var open, consumed []*hold
	for _, h := range s.holds[workOrderID] {
		switch h.status {
		case holdOpen:
			open = append(open, h)
		case holdConsumed:
			consumed = append(consumed, h)
		}
	}

	switch {
	case len(open) > 0:
		return s.consumeHoldsLocked(open, actual), nil
	case len(consumed) > 0:
		result := backends.ConsumeResult{Success: true, Message: fmt.Sprintf("work order %s already consumed", workOrderID)}
		for _, h := range consumed {
			result.Consumed = append(result.Consumed, backends.MaterialUsed{SKU: h.sku, Quantity: h.used})
		}
		return result, nil
	case len(actual) > 0:
		return s.issueLocked(workOrderID, actual), nil
	default:
		return backends.ConsumeResult{Success: false, Message: fmt.Sprintf("no open holds for work order %s", workOrderID)}, nil
	}
}

func (s *StockBackend) consumeHoldsLocked(open []*hold, actual []backends.MaterialUsed) backends.ConsumeResult {
	usage := make(map[entities.SKU]decimal.Decimal, len(actual))
	for _, u := range actual {
		usage[u.SKU] = u.Quantity
	}

	result := backends.ConsumeResult{Success: true}
	for _, h := range open {
		consumed := h.quantity
		if q, ok := usage[h.sku]; ok {
			consumed = q
			if !q.Equal(h.quantity) {
				result.Adjustments = append(result.Adjustments, backends.MaterialAdjustment{SKU: h.sku, Reserved: h.quantity, Consumed: q})
			}
		}
		s.onHand[h.sku] = s.onHand[h.sku].Sub(consumed)
		h.status = holdConsumed
		h.used = consumed
		result.Consumed = append(result.Consumed, backends.MaterialUsed{SKU: h.sku, Quantity: consumed})
	}
	return result
}

// issueLocked takes actual out of on hand for an order without holds.
// Nothing moves unless every SKU is covered.
func (s *StockBackend) issueLocked(workOrderID uuid.UUID, actual []backends.MaterialUsed) backends.ConsumeResult {
	needed := make(map[entities.SKU]decimal.Decimal, len(actual))
	var order []entities.SKU
	for _, u := range actual {
		if _, ok := needed[u.SKU]; !ok {
			order = append(order, u.SKU)
		}
		needed[u.SKU] = needed[u.SKU].Add(u.Quantity)
	}
	for _, sku := range order {
		if available := s.availableLocked(sku); available.LessThan(needed[sku]) {
			return backends.ConsumeResult{
				Success: false,
				Message: fmt.Sprintf("insufficient %s: need %s, available %s", sku, needed[sku], available),
			}
		}
	}

	result := backends.ConsumeResult{Success: true}
	for _, sku := range order {
		qty := needed[sku]
		s.onHand[sku] = s.onHand[sku].Sub(qty)
		s.holds[workOrderID] = append(s.holds[workOrderID], &hold{
			id:       "issue:" + uuid.NewString(),
			sku:      sku,
			quantity: qty,
			used:     qty,
			status:   holdConsumed,
		})
		result.Consumed = append(result.Consumed, backends.MaterialUsed{SKU: sku, Quantity: qty})
	}
	return result
}

// Release frees every open hold of the work order
func (s *StockBackend) Release(ctx context.Context, workOrderID uuid.UUID, _ string) (backends.ReleaseResult, error) {
	if err := ctx.Err(); err != nil {
		return backends.ReleaseResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	result := backends.ReleaseResult{Success: true}
	for _, h := range s.holds[workOrderID] {
		if h.status != holdOpen {
			continue
		}
		h.status = holdReleased
		result.Released = append(result.Released, backends.MaterialUsed{SKU: h.sku, Quantity: h.quantity})
	}
	sort.Slice(result.Released, func(i, j int) bool { return result.Released[i].SKU < result.Released[j].SKU })
	return result, nil
}

// Receive adds finished goods to on hand
func (s *StockBackend) Receive(ctx context.Context, sku entities.SKU, quantity decimal.Decimal, workOrderID uuid.UUID, positionCode string, _ map[string]string) (backends.ReceiveResult, error) {
	if err := ctx.Err(); err != nil {
		return backends.ReceiveResult{}, err
	}
	if sku == "" {
		return backends.ReceiveResult{Success: false, Message: "output sku is empty"}, nil
	}
	if !quantity.IsPositive() {
		return backends.ReceiveResult{Success: false, Message: fmt.Sprintf("quantity must be positive, got %s", quantity)}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.onHand[sku] = s.onHand[sku].Add(quantity)
	receipt := Receipt{
		ID:           "receipt:" + uuid.NewString(),
		SKU:          sku,
		Quantity:     quantity,
		WorkOrderID:  workOrderID,
		PositionCode: positionCode,
	}
	s.receipts = append(s.receipts, receipt)
	return backends.ReceiveResult{Success: true, ReceiptID: receipt.ID}, nil
}
