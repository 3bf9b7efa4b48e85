// Package handlers connects production events to the stock backend:
// materials are consumed when an order starts, output is received when it
// completes and holds are released when it is cancelled.
package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vsinha/craftsman/pkg/domain/backends"
	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/domain/errs"
	"github.com/vsinha/craftsman/pkg/domain/repositories"
	"github.com/vsinha/craftsman/pkg/infrastructure/events"
	"github.com/vsinha/craftsman/pkg/infrastructure/logging"
)

// StockHandlers reacts to work order events against a StockBackend
type StockHandlers struct {
	stock  backends.StockBackend
	store  repositories.Transactor
	now    func() time.Time
	logger *zap.Logger
}

// NewStockHandlers creates the handlers. store is used to record receipt
// failures on the order and may be nil.
func NewStockHandlers(stock backends.StockBackend, store repositories.Transactor, now func() time.Time, logger *zap.Logger) *StockHandlers {
	if now == nil {
		now = time.Now
	}
	return &StockHandlers{
		stock:  stock,
		store:  store,
		now:    now,
		logger: logging.OrNop(logger).Named("stock"),
	}
}

// Register subscribes every handler on bus
func (h *StockHandlers) Register(bus *events.Bus) {
	bus.Subscribe(events.ListenerFunc(h.MaterialsNeeded), events.MaterialsNeededEvent)
	bus.Subscribe(events.ListenerFunc(h.ProductionCompleted), events.ProductionCompletedEvent)
	bus.Subscribe(events.ListenerFunc(h.OrderCancelled), events.OrderCancelledEvent)
}

// MaterialsNeeded takes the order's materials out of stock. Reserved
// orders consume their holds; others are checked for availability and
// issued their requirements directly. It runs inside the start
// transaction: an error keeps the order pending. Consume is idempotent
// per order, so a start retried after a rollback does not issue twice.
func (h *StockHandlers) MaterialsNeeded(ctx context.Context, event events.Event) error {
	data, ok := event.Data().(events.MaterialsNeeded)
	if !ok || data.WorkOrder == nil {
		return nil
	}
	wo := data.WorkOrder
	if len(data.Requirements) == 0 {
		h.logger.Info("no material requirements", zap.String("work_order", wo.Code))
		return nil
	}

	if len(wo.Holds) > 0 {
		return h.consume(ctx, wo, nil)
	}

	needs := backends.Consolidate(backends.NeedsFor(data.Requirements))
	availability, err := h.stock.Available(ctx, needs)
	if err != nil {
		h.logger.Error("failed to check availability", zap.String("work_order", wo.Code), zap.Error(err))
		return errs.Wrap(errs.MaterialConsumptionFailed, err, "work_order", wo.Code)
	}
	if short := availability.Shortages(); len(short) > 0 {
		first := short[0]
		h.logger.Warn("insufficient materials to start",
			zap.String("work_order", wo.Code),
			zap.String("sku", string(first.SKU)),
			zap.Stringer("required", first.Needed),
			zap.Stringer("available", first.Available),
		)
		return errs.New(errs.InsufficientMaterials,
			"sku", string(first.SKU),
			"required", first.Needed.String(),
			"available", first.Available.String(),
		)
	}

	usage := make([]backends.MaterialUsed, 0, len(needs))
	for _, n := range needs {
		usage = append(usage, backends.MaterialUsed{SKU: n.SKU, Quantity: n.Quantity})
	}
	return h.consume(ctx, wo, usage)
}

// consume converts holds, or issues usage when usage is given
func (h *StockHandlers) consume(ctx context.Context, wo *entities.WorkOrder, usage []backends.MaterialUsed) error {
	result, err := h.stock.Consume(ctx, wo.ID, usage)
	if err != nil {
		h.logger.Error("failed to consume materials", zap.String("work_order", wo.Code), zap.Error(err))
		return errs.Wrap(errs.MaterialConsumptionFailed, err, "work_order", wo.Code)
	}
	if !result.Success {
		h.logger.Error("stock refused consumption", zap.String("work_order", wo.Code), zap.String("message", result.Message))
		return errs.New(errs.MaterialConsumptionFailed, "work_order", wo.Code, "error", result.Message)
	}
	for _, used := range result.Consumed {
		h.logger.Info("material consumed",
			zap.String("work_order", wo.Code),
			zap.String("sku", string(used.SKU)),
			zap.Stringer("quantity", used.Quantity),
		)
	}
	return nil
}

// ProductionCompleted receives the output at the order's destination.
// Production is already stored, so a failure is recorded and logged only.
func (h *StockHandlers) ProductionCompleted(ctx context.Context, event events.Event) error {
	data, ok := event.Data().(events.ProductionCompleted)
	if !ok || data.WorkOrder == nil {
		return nil
	}
	wo := data.WorkOrder
	if data.ActualQuantity.IsZero() {
		h.logger.Warn("nothing to receive", zap.String("work_order", wo.Code))
		return nil
	}

	result, err := h.stock.Receive(ctx, data.Output.SKU, data.ActualQuantity, wo.ID, data.Destination, map[string]string{
		"work_order": wo.Code,
		"actor":      data.Actor,
	})
	message := ""
	switch {
	case err != nil:
		message = err.Error()
	case !result.Success:
		message = result.Message
	}
	if message == "" {
		h.logger.Info("production received",
			zap.String("work_order", wo.Code),
			zap.String("sku", string(data.Output.SKU)),
			zap.Stringer("quantity", data.ActualQuantity),
			zap.String("receipt", result.ReceiptID),
		)
		return nil
	}

	h.logger.Error("failed to receive production",
		zap.String("work_order", wo.Code),
		zap.String("sku", string(data.Output.SKU)),
		zap.String("error", message),
	)
	h.recordReceiveError(ctx, wo.ID, message, data)
	return nil
}

func (h *StockHandlers) recordReceiveError(ctx context.Context, id uuid.UUID, message string, data events.ProductionCompleted) {
	if h.store == nil {
		return
	}
	err := h.store.RunInTransaction(ctx, func(tx repositories.Tx) error {
		wo, err := tx.WorkOrders().GetWorkOrder(id)
		if err != nil {
			return err
		}
		wo.ReceiveError = &entities.ReceiveError{Error: message, Quantity: data.ActualQuantity, At: h.now()}
		return tx.WorkOrders().SaveWorkOrder(wo)
	})
	if err != nil {
		h.logger.Error("failed to record receive error", zap.String("work_order", data.WorkOrder.Code), zap.Error(err))
	}
}

// OrderCancelled releases every hold of the cancelled order
func (h *StockHandlers) OrderCancelled(ctx context.Context, event events.Event) error {
	data, ok := event.Data().(events.OrderCancelled)
	if !ok || data.WorkOrder == nil {
		return nil
	}
	wo := data.WorkOrder

	result, err := h.stock.Release(ctx, wo.ID, data.Reason)
	if err != nil || !result.Success {
		message := result.Message
		if err != nil {
			message = err.Error()
		}
		h.logger.Error("failed to release materials", zap.String("work_order", wo.Code), zap.String("error", message))
		return nil
	}
	h.logger.Info("materials released", zap.String("work_order", wo.Code), zap.Int("holds", len(result.Released)))
	return nil
}
