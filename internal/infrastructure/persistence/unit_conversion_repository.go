package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmacy/backend/internal/domain/catalog"
	"github.com/pharmacy/backend/internal/domain/shared"
)

// GormUnitConversionRepository implements catalog.UnitConversionRepository using GORM
type GormUnitConversionRepository struct {
	db *gorm.DB
}

// NewGormUnitConversionRepository creates a new GormUnitConversionRepository
func NewGormUnitConversionRepository(db *gorm.DB) *GormUnitConversionRepository {
	return &GormUnitConversionRepository{db: db}
}

// FindByID finds a unit conversion by its ID
func (r *GormUnitConversionRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.UnitConversion, error) {
	var conversion catalog.UnitConversion
	if err := r.db.WithContext(ctx).
		Preload("PackagingUnit").
		First(&conversion, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conversion, nil
}

// FindByProduct finds all conversions defined for a product
func (r *GormUnitConversionRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]catalog.UnitConversion, error) {
	var conversions []catalog.UnitConversion
	if err := r.db.WithContext(ctx).
		Preload("PackagingUnit").
		Where("product_id = ?", productID).
		Order("multiplier ASC").
		Find(&conversions).Error; err != nil {
		return nil, err
	}
	return conversions, nil
}

// FindByProductAndUnit finds the conversion binding a packaging unit to a product
func (r *GormUnitConversionRepository) FindByProductAndUnit(ctx context.Context, productID, packagingUnitID uuid.UUID) (*catalog.UnitConversion, error) {
	var conversion catalog.UnitConversion
	if err := r.db.WithContext(ctx).
		Preload("PackagingUnit").
		Where("product_id = ? AND packaging_unit_id = ?", productID, packagingUnitID).
		First(&conversion).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrConversionNotFound
		}
		return nil, err
	}
	return &conversion, nil
}

// FindByScanCode resolves a barcode scan to its (product, unit) conversion
func (r *GormUnitConversionRepository) FindByScanCode(ctx context.Context, scanCode string) (*catalog.UnitConversion, error) {
	var conversion catalog.UnitConversion
	if err := r.db.WithContext(ctx).
		Preload("PackagingUnit").
		Where("scan_code = ?", scanCode).
		First(&conversion).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conversion, nil
}

// FindAll finds all unit conversions with filtering
func (r *GormUnitConversionRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.UnitConversion, error) {
	var conversions []catalog.UnitConversion
	query := r.db.WithContext(ctx).Model(&catalog.UnitConversion{}).Preload("PackagingUnit")

	if productID, ok := filter.Filters["product_id"]; ok {
		query = query.Where("product_id = ?", productID)
	}

	query = query.Scopes(SortScope(filter, UnitConversionSortFields, "created_at"), PageScope(filter))

	if err := query.Find(&conversions).Error; err != nil {
		return nil, err
	}
	return conversions, nil
}

// Save creates or updates a unit conversion
func (r *GormUnitConversionRepository) Save(ctx context.Context, conversion *catalog.UnitConversion) error {
	return r.db.WithContext(ctx).Omit("PackagingUnit").Save(conversion).Error
}

// Delete deletes a unit conversion
func (r *GormUnitConversionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&catalog.UnitConversion{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts unit conversions matching the filter
func (r *GormUnitConversionRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&catalog.UnitConversion{})

	if productID, ok := filter.Filters["product_id"]; ok {
		query = query.Where("product_id = ?", productID)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
