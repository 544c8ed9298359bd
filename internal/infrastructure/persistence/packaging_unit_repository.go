package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmacy/backend/internal/domain/catalog"
	"github.com/pharmacy/backend/internal/domain/shared"
)

// GormPackagingUnitRepository implements catalog.PackagingUnitRepository using GORM
type GormPackagingUnitRepository struct {
	db *gorm.DB
}

// NewGormPackagingUnitRepository creates a new GormPackagingUnitRepository
func NewGormPackagingUnitRepository(db *gorm.DB) *GormPackagingUnitRepository {
	return &GormPackagingUnitRepository{db: db}
}

// FindByID finds a packaging unit by its ID
func (r *GormPackagingUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.PackagingUnit, error) {
	var unit catalog.PackagingUnit
	if err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &unit, nil
}

// FindByName finds a packaging unit by its exact name
func (r *GormPackagingUnitRepository) FindByName(ctx context.Context, name string) (*catalog.PackagingUnit, error) {
	var unit catalog.PackagingUnit
	if err := r.db.WithContext(ctx).First(&unit, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &unit, nil
}

// FindAll finds all packaging units with filtering
func (r *GormPackagingUnitRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.PackagingUnit, error) {
	var units []catalog.PackagingUnit
	query := r.db.WithContext(ctx).Model(&catalog.PackagingUnit{})

	if filter.Search != "" {
		query = query.Where("name LIKE ?", "%"+filter.Search+"%")
	}

	query = query.Scopes(SortScope(filter, PackagingUnitSortFields, "name"), PageScope(filter))

	if err := query.Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// Save creates or updates a packaging unit
func (r *GormPackagingUnitRepository) Save(ctx context.Context, unit *catalog.PackagingUnit) error {
	return r.db.WithContext(ctx).Save(unit).Error
}

// Delete deletes a packaging unit
func (r *GormPackagingUnitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&catalog.PackagingUnit{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts packaging units matching the filter
func (r *GormPackagingUnitRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&catalog.PackagingUnit{})

	if filter.Search != "" {
		query = query.Where("name LIKE ?", "%"+filter.Search+"%")
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
