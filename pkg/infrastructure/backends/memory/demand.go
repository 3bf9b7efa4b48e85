package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/craftsman/pkg/domain/backends"
	"github.com/vsinha/craftsman/pkg/domain/entities"
)

type demandKey struct {
	sku  entities.SKU
	date string
}

// DemandBackend sums customer holds registered per product and date
type DemandBackend struct {
	mu        sync.RWMutex
	committed map[demandKey]decimal.Decimal
}

var _ backends.DemandBackend = (*DemandBackend)(nil)

// NewDemandBackend creates an empty demand book
func NewDemandBackend() *DemandBackend {
	return &DemandBackend{committed: make(map[demandKey]decimal.Decimal)}
}

// Commit registers a customer hold for a product on a date
func (d *DemandBackend) Commit(sku entities.SKU, date time.Time, quantity decimal.Decimal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := demandKey{sku: sku, date: entities.DateOnly(date).Format("2006-01-02")}
	d.committed[key] = d.committed[key].Add(quantity)
}

// Committed returns the total registered for a product on a date
func (d *DemandBackend) Committed(ctx context.Context, product entities.ItemRef, date time.Time) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.committed[demandKey{sku: product.SKU, date: entities.DateOnly(date).Format("2006-01-02")}], nil
}
