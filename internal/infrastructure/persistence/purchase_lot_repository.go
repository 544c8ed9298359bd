package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmacy/backend/internal/domain/ledger"
	"github.com/pharmacy/backend/internal/domain/shared"
)

// GormPurchaseLotRepository implements ledger.PurchaseLotRepository using GORM
type GormPurchaseLotRepository struct {
	db *gorm.DB
}

// NewGormPurchaseLotRepository creates a new GormPurchaseLotRepository
func NewGormPurchaseLotRepository(db *gorm.DB) *GormPurchaseLotRepository {
	return &GormPurchaseLotRepository{db: db}
}

// FindByID finds a purchase lot by its ID
func (r *GormPurchaseLotRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.PurchaseLot, error) {
	var lot ledger.PurchaseLot
	if err := r.db.WithContext(ctx).First(&lot, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lot, nil
}

// FindByProduct finds all lots of a product, oldest purchase first
func (r *GormPurchaseLotRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]ledger.PurchaseLot, error) {
	var lots []ledger.PurchaseLot
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("invoice_date ASC, created_at ASC").
		Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// FindActiveByProduct finds the product's lots that still hold stock,
// oldest purchase first so allocation can walk them in draw order
func (r *GormPurchaseLotRepository) FindActiveByProduct(ctx context.Context, productID uuid.UUID) ([]ledger.PurchaseLot, error) {
	var lots []ledger.PurchaseLot
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND remaining > 0", productID).
		Order("invoice_date ASC, created_at ASC").
		Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// FindByInvoice finds the lots created by one purchase invoice
func (r *GormPurchaseLotRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]ledger.PurchaseLot, error) {
	var lots []ledger.PurchaseLot
	if err := r.db.WithContext(ctx).
		Where("purchase_invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// FindExpiringBefore finds lots with stock left that expire on or before the cutoff
func (r *GormPurchaseLotRepository) FindExpiringBefore(ctx context.Context, cutoff time.Time) ([]ledger.PurchaseLot, error) {
	var lots []ledger.PurchaseLot
	if err := r.db.WithContext(ctx).
		Where("remaining > 0 AND expiry_date IS NOT NULL AND expiry_date <= ?", cutoff).
		Order("expiry_date ASC").
		Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// FindAll finds all lots with filtering
func (r *GormPurchaseLotRepository) FindAll(ctx context.Context, filter shared.Filter) ([]ledger.PurchaseLot, error) {
	var lots []ledger.PurchaseLot
	query := r.applyFilter(r.db.WithContext(ctx).Model(&ledger.PurchaseLot{}), filter)

	if err := query.Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// Save creates or updates a purchase lot
func (r *GormPurchaseLotRepository) Save(ctx context.Context, lot *ledger.PurchaseLot) error {
	return r.db.WithContext(ctx).Save(lot).Error
}

// SaveAll persists a batch of lots in one transaction
func (r *GormPurchaseLotRepository) SaveAll(ctx context.Context, lots []*ledger.PurchaseLot) error {
	if len(lots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, lot := range lots {
			if err := tx.Save(lot).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete deletes a purchase lot
func (r *GormPurchaseLotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&ledger.PurchaseLot{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteByInvoice deletes every lot a purchase invoice created
func (r *GormPurchaseLotRepository) DeleteByInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("purchase_invoice_id = ?", invoiceID).
		Delete(&ledger.PurchaseLot{}).Error
}

// Count counts lots matching the filter
func (r *GormPurchaseLotRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&ledger.PurchaseLot{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormPurchaseLotRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	return r.applyFilterWithoutPagination(query, filter).
		Scopes(SortScope(filter, PurchaseLotSortFields, "invoice_date"), PageScope(filter))
}

func (r *GormPurchaseLotRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if productID, ok := filter.Filters["product_id"]; ok {
		query = query.Where("product_id = ?", productID)
	}

	if active, ok := filter.Filters["active"].(bool); ok && active {
		query = query.Where("remaining > 0")
	}

	return query
}
