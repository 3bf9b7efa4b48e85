package memory

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/domain/errs"
	"github.com/vsinha/craftsman/pkg/domain/repositories"
)

type workOrderRepository struct {
	tx *transaction
}

var _ repositories.WorkOrderRepository = (*workOrderRepository)(nil)

func (r *workOrderRepository) GetWorkOrder(id uuid.UUID) (*entities.WorkOrder, error) {
	wo, ok := r.tx.state.workOrders[id]
	if !ok {
		return nil, errs.New(errs.WorkOrderNotFound, "id", id.String())
	}
	return wo.Clone(), nil
}

func (r *workOrderRepository) GetWorkOrderByCode(code string) (*entities.WorkOrder, error) {
	id, ok := r.tx.state.codes[code]
	if !ok {
		return nil, errs.New(errs.WorkOrderNotFound, "code", code)
	}
	return r.GetWorkOrder(id)
}

func (r *workOrderRepository) SaveWorkOrder(wo *entities.WorkOrder) error {
	if err := r.tx.checkWritable(); err != nil {
		return err
	}
	if wo.Code == "" {
		return fmt.Errorf("work order %s has no code", wo.ID)
	}
	if owner, ok := r.tx.state.codes[wo.Code]; ok && owner != wo.ID {
		return fmt.Errorf("work order code %s already exists", wo.Code)
	}
	if previous, ok := r.tx.state.workOrders[wo.ID]; ok && previous.Code != wo.Code {
		delete(r.tx.state.codes, previous.Code)
	}
	r.tx.state.workOrders[wo.ID] = wo.Clone()
	r.tx.state.codes[wo.Code] = wo.ID
	return nil
}

func (r *workOrderRepository) ListWorkOrders(filter repositories.WorkOrderFilter) ([]*entities.WorkOrder, error) {
	var orders []*entities.WorkOrder
	for _, wo := range r.tx.state.workOrders {
		if filter.Matches(wo) {
			orders = append(orders, wo.Clone())
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		return orders[i].Code < orders[j].Code
	})
	return orders, nil
}
