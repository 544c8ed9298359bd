package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmacy/backend/internal/domain/ledger"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/domain/trade"
)

// GormSalesInvoiceRepository implements trade.SalesInvoiceRepository using GORM
type GormSalesInvoiceRepository struct {
	db *gorm.DB
}

// NewGormSalesInvoiceRepository creates a new GormSalesInvoiceRepository
func NewGormSalesInvoiceRepository(db *gorm.DB) *GormSalesInvoiceRepository {
	return &GormSalesInvoiceRepository{db: db}
}

// FindByID finds a sales invoice with its allocations and their lot sources
func (r *GormSalesInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.SalesInvoice, error) {
	var invoice trade.SalesInvoice
	if err := r.db.WithContext(ctx).
		Preload("Allocations.Sources").
		First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindBySerial finds a sales invoice by its serial
func (r *GormSalesInvoiceRepository) FindBySerial(ctx context.Context, serial string) (*trade.SalesInvoice, error) {
	var invoice trade.SalesInvoice
	if err := r.db.WithContext(ctx).
		Preload("Allocations.Sources").
		Where("serial = ?", serial).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindAll finds sales invoices with filtering
func (r *GormSalesInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.SalesInvoice, error) {
	var invoices []trade.SalesInvoice
	query := applyInvoiceFilter(
		r.db.WithContext(ctx).Model(&trade.SalesInvoice{}).Preload("Allocations.Sources"),
		filter,
		InvoiceSortFields,
	)

	if channel, ok := filter.Filters["channel"]; ok {
		query = query.Where("channel = ?", channel)
	}

	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindByCustomer finds sales invoices for a customer
func (r *GormSalesInvoiceRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]trade.SalesInvoice, error) {
	var invoices []trade.SalesInvoice
	query := applyInvoiceFilter(
		r.db.WithContext(ctx).Model(&trade.SalesInvoice{}).
			Preload("Allocations.Sources").
			Where("customer_id = ?", customerID),
		filter,
		InvoiceSortFields,
	)

	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// SaveNew persists a freshly created sales invoice. The serial is derived
// inside the insert transaction and re-derived when a concurrent same-day
// sale wins the race on the unique index.
func (r *GormSalesInvoiceRepository) SaveNew(ctx context.Context, invoice *trade.SalesInvoice) error {
	return withSerialRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			serial, err := deriveSerial(ctx, tx, &trade.SalesInvoice{}, trade.KindSale, invoice.Date)
			if err != nil {
				return err
			}
			invoice.Serial = serial
			return saveSalesInvoiceTx(tx, invoice)
		})
	})
}

// Save creates or updates a sales invoice together with its allocations and
// their sources. Allocations dropped from the header are removed with their
// sources.
func (r *GormSalesInvoiceRepository) Save(ctx context.Context, invoice *trade.SalesInvoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveSalesInvoiceTx(tx, invoice)
	})
}

func saveSalesInvoiceTx(tx *gorm.DB, invoice *trade.SalesInvoice) error {
	if err := tx.Omit("Allocations").Save(invoice).Error; err != nil {
		return err
	}

	currentIDs := make([]uuid.UUID, len(invoice.Allocations))
	for i, alloc := range invoice.Allocations {
		currentIDs[i] = alloc.ID
	}

	removed := tx.Model(&trade.SalesAllocation{}).Where("sales_invoice_id = ?", invoice.ID)
	if len(currentIDs) > 0 {
		removed = removed.Where("id NOT IN ?", currentIDs)
	}
	var removedIDs []uuid.UUID
	if err := removed.Pluck("id", &removedIDs).Error; err != nil {
		return err
	}
	if len(removedIDs) > 0 {
		if err := tx.Where("sales_allocation_id IN ?", removedIDs).
			Delete(&ledger.AllocationSource{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", removedIDs).
			Delete(&trade.SalesAllocation{}).Error; err != nil {
			return err
		}
	}

	for i := range invoice.Allocations {
		alloc := &invoice.Allocations[i]
		alloc.SalesInvoiceID = invoice.ID
		if err := tx.Omit("Sources").Save(alloc).Error; err != nil {
			return err
		}

		sourceIDs := make([]uuid.UUID, len(alloc.Sources))
		for j, src := range alloc.Sources {
			sourceIDs[j] = src.ID
		}
		if len(sourceIDs) > 0 {
			if err := tx.Where("sales_allocation_id = ? AND id NOT IN ?", alloc.ID, sourceIDs).
				Delete(&ledger.AllocationSource{}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Where("sales_allocation_id = ?", alloc.ID).
				Delete(&ledger.AllocationSource{}).Error; err != nil {
				return err
			}
		}
		for j := range alloc.Sources {
			alloc.Sources[j].SalesAllocationID = alloc.ID
			if err := tx.Save(&alloc.Sources[j]).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// Delete deletes a sales invoice with its allocations and sources
func (r *GormSalesInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var allocationIDs []uuid.UUID
		if err := tx.Model(&trade.SalesAllocation{}).
			Where("sales_invoice_id = ?", id).
			Pluck("id", &allocationIDs).Error; err != nil {
			return err
		}

		if len(allocationIDs) > 0 {
			if err := tx.Where("sales_allocation_id IN ?", allocationIDs).
				Delete(&ledger.AllocationSource{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", allocationIDs).
				Delete(&trade.SalesAllocation{}).Error; err != nil {
				return err
			}
		}

		result := tx.Delete(&trade.SalesInvoice{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Count counts sales invoices matching the filter
func (r *GormSalesInvoiceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := applyInvoiceFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&trade.SalesInvoice{}),
		filter,
	)

	if channel, ok := filter.Filters["channel"]; ok {
		query = query.Where("channel = ?", channel)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
