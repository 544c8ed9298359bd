package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// ProductRepository defines the product persistence interface
type ProductRepository interface {
	shared.Repository[Product]
	FindByName(ctx context.Context, name string) (*Product, error)
	FindLowStock(ctx context.Context) ([]Product, error)
}

// PackagingUnitRepository defines the packaging unit persistence interface
type PackagingUnitRepository interface {
	shared.Repository[PackagingUnit]
	FindByName(ctx context.Context, name string) (*PackagingUnit, error)
}

// UnitConversionRepository defines the unit conversion persistence interface
type UnitConversionRepository interface {
	shared.Repository[UnitConversion]
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]UnitConversion, error)
	FindByProductAndUnit(ctx context.Context, productID, packagingUnitID uuid.UUID) (*UnitConversion, error)
	FindByScanCode(ctx context.Context, scanCode string) (*UnitConversion, error)
}
