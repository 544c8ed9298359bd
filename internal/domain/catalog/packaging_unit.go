package catalog

import (
	"strings"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// PackagingUnit is a named unit of measure, e.g. tablet, strip, box.
// Units carry no size of their own; a UnitConversion binds a unit to a
// product with a concrete multiplier.
type PackagingUnit struct {
	shared.BaseEntity
	Name string `gorm:"not null;uniqueIndex"`
}

// NewPackagingUnit creates a new packaging unit
func NewPackagingUnit(name string) (*PackagingUnit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Packaging unit name is required")
	}
	return &PackagingUnit{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
	}, nil
}

// Rename changes the unit name
func (u *PackagingUnit) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Packaging unit name is required")
	}
	u.Name = name
	return nil
}
