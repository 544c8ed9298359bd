package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmacy/backend/internal/domain/ledger"
)

// GormAllocationSourceRepository implements ledger.AllocationSourceRepository using GORM
type GormAllocationSourceRepository struct {
	db *gorm.DB
}

// NewGormAllocationSourceRepository creates a new GormAllocationSourceRepository
func NewGormAllocationSourceRepository(db *gorm.DB) *GormAllocationSourceRepository {
	return &GormAllocationSourceRepository{db: db}
}

// FindByAllocation finds the sources of one sales allocation, newest lot first
// so reversal can walk them in hand-back order
func (r *GormAllocationSourceRepository) FindByAllocation(ctx context.Context, allocationID uuid.UUID) ([]ledger.AllocationSource, error) {
	var sources []ledger.AllocationSource
	if err := r.db.WithContext(ctx).
		Where("sales_allocation_id = ?", allocationID).
		Order("lot_invoice_date DESC, created_at DESC").
		Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

// FindByLot finds every source that drew from a lot
func (r *GormAllocationSourceRepository) FindByLot(ctx context.Context, lotID uuid.UUID) ([]ledger.AllocationSource, error) {
	var sources []ledger.AllocationSource
	if err := r.db.WithContext(ctx).
		Where("lot_id = ?", lotID).
		Order("created_at ASC").
		Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

// SaveAll persists a batch of allocation sources in one transaction
func (r *GormAllocationSourceRepository) SaveAll(ctx context.Context, sources []*ledger.AllocationSource) error {
	if len(sources) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, source := range sources {
			if err := tx.Save(source).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteByAllocation deletes the sources of one sales allocation
func (r *GormAllocationSourceRepository) DeleteByAllocation(ctx context.Context, allocationID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("sales_allocation_id = ?", allocationID).
		Delete(&ledger.AllocationSource{}).Error
}
