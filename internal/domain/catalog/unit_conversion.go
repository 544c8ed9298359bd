package catalog

import (
	"strings"

	"github.com/google/uuid"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// UnitConversion binds a packaging unit to a product with a multiplier into
// base units. A product's smallest unit has multiplier 1; a strip of ten
// tablets has multiplier 10. The optional scan code lets a barcode scan
// resolve directly to (product, unit).
type UnitConversion struct {
	shared.BaseEntity
	ProductID       uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_product_unit,priority:1"`
	PackagingUnitID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_product_unit,priority:2"`
	// Multiplier is the number of base units one packaging unit contains
	Multiplier int64 `gorm:"not null"`
	// ScanCode is an optional barcode unique across all conversions
	ScanCode *string `gorm:"uniqueIndex"`

	PackagingUnit *PackagingUnit `gorm:"foreignKey:PackagingUnitID"`
}

// NewUnitConversion creates a new unit conversion
func NewUnitConversion(productID, packagingUnitID uuid.UUID, multiplier int64, scanCode string) (*UnitConversion, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Product is required")
	}
	if packagingUnitID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Packaging unit is required")
	}
	if multiplier <= 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Multiplier must be greater than zero")
	}
	c := &UnitConversion{
		BaseEntity:      shared.NewBaseEntity(),
		ProductID:       productID,
		PackagingUnitID: packagingUnitID,
		Multiplier:      multiplier,
	}
	if code := strings.TrimSpace(scanCode); code != "" {
		c.ScanCode = &code
	}
	return c, nil
}

// ToBaseUnits converts a quantity in this packaging unit to base units
func (c *UnitConversion) ToBaseUnits(quantity int64) int64 {
	return quantity * c.Multiplier
}

// UpdateMultiplier changes the multiplier
func (c *UnitConversion) UpdateMultiplier(multiplier int64) error {
	if multiplier <= 0 {
		return shared.NewDomainError("VALIDATION_ERROR", "Multiplier must be greater than zero")
	}
	c.Multiplier = multiplier
	return nil
}

// SetScanCode sets or clears the scan code
func (c *UnitConversion) SetScanCode(scanCode string) {
	if code := strings.TrimSpace(scanCode); code != "" {
		c.ScanCode = &code
	} else {
		c.ScanCode = nil
	}
}
