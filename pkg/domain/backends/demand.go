package backends

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/craftsman/pkg/domain/entities"
)

// DemandBackend reports demand already committed to customers for a product on a date
type DemandBackend interface {
	Committed(ctx context.Context, product entities.ItemRef, date time.Time) (decimal.Decimal, error)
}

// ProductInfo is catalog data about a sellable or stocked item
type ProductInfo struct {
	SKU      entities.SKU
	Name     string
	Unit     string
	Category string
	IsActive bool
}

// SkuValidationResult tells whether a SKU can be a recipe output
type SkuValidationResult struct {
	Valid   bool
	Message string
	Product *ProductInfo
}

// ProductInfoBackend resolves SKUs against the product catalog
type ProductInfoBackend interface {
	// GetProductInfo returns nil when the SKU is unknown
	GetProductInfo(ctx context.Context, sku entities.SKU) (*ProductInfo, error)
	ValidateOutputSku(ctx context.Context, sku entities.SKU) (SkuValidationResult, error)
}
