package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vsinha/craftsman/pkg/domain/backends"
	"github.com/vsinha/craftsman/pkg/domain/entities"
)

// ProductCatalog is an in-memory product master
type ProductCatalog struct {
	mu       sync.RWMutex
	products map[entities.SKU]backends.ProductInfo
}

var _ backends.ProductInfoBackend = (*ProductCatalog)(nil)

// NewProductCatalog creates an empty catalog
func NewProductCatalog() *ProductCatalog {
	return &ProductCatalog{products: make(map[entities.SKU]backends.ProductInfo)}
}

// Add registers or replaces a product
func (c *ProductCatalog) Add(info backends.ProductInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[info.SKU] = info
}

// GetProductInfo returns nil for unknown SKUs
func (c *ProductCatalog) GetProductInfo(ctx context.Context, sku entities.SKU) (*backends.ProductInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.products[sku]
	if !ok {
		return nil, nil
	}
	return &info, nil
}

// ValidateOutputSku accepts known, active products
func (c *ProductCatalog) ValidateOutputSku(ctx context.Context, sku entities.SKU) (backends.SkuValidationResult, error) {
	info, err := c.GetProductInfo(ctx, sku)
	if err != nil {
		return backends.SkuValidationResult{}, err
	}
	switch {
	case info == nil:
		return backends.SkuValidationResult{Valid: false, Message: fmt.Sprintf("unknown sku %s", sku)}, nil
	case !info.IsActive:
		return backends.SkuValidationResult{Valid: false, Message: fmt.Sprintf("sku %s is inactive", sku), Product: info}, nil
	default:
		return backends.SkuValidationResult{Valid: true, Product: info}, nil
	}
}
