package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/domain/trade"
)

// GormReturnInvoiceRepository implements trade.ReturnInvoiceRepository using GORM
type GormReturnInvoiceRepository struct {
	db *gorm.DB
}

// NewGormReturnInvoiceRepository creates a new GormReturnInvoiceRepository
func NewGormReturnInvoiceRepository(db *gorm.DB) *GormReturnInvoiceRepository {
	return &GormReturnInvoiceRepository{db: db}
}

// FindByID finds a return invoice with its records and returned sources
func (r *GormReturnInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.ReturnInvoice, error) {
	var invoice trade.ReturnInvoice
	if err := r.db.WithContext(ctx).
		Preload("Records.Sources").
		First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindBySerial finds a return invoice by its serial
func (r *GormReturnInvoiceRepository) FindBySerial(ctx context.Context, serial string) (*trade.ReturnInvoice, error) {
	var invoice trade.ReturnInvoice
	if err := r.db.WithContext(ctx).
		Preload("Records.Sources").
		Where("serial = ?", serial).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindBySalesInvoice finds the returns raised against one sales invoice
func (r *GormReturnInvoiceRepository) FindBySalesInvoice(ctx context.Context, salesInvoiceID uuid.UUID) ([]trade.ReturnInvoice, error) {
	var invoices []trade.ReturnInvoice
	if err := r.db.WithContext(ctx).
		Preload("Records.Sources").
		Where("sales_invoice_id = ?", salesInvoiceID).
		Order("date ASC, created_at ASC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindAll finds return invoices with filtering
func (r *GormReturnInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.ReturnInvoice, error) {
	var invoices []trade.ReturnInvoice
	query := applyInvoiceFilter(
		r.db.WithContext(ctx).Model(&trade.ReturnInvoice{}).Preload("Records.Sources"),
		filter,
		ReturnInvoiceSortFields,
	)

	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// SaveNew persists a freshly created return invoice. The serial is derived
// inside the insert transaction and re-derived when a concurrent same-day
// return wins the race on the unique index.
func (r *GormReturnInvoiceRepository) SaveNew(ctx context.Context, invoice *trade.ReturnInvoice) error {
	return withSerialRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			serial, err := deriveSerial(ctx, tx, &trade.ReturnInvoice{}, trade.KindReturn, invoice.Date)
			if err != nil {
				return err
			}
			invoice.Serial = serial
			return saveReturnInvoiceTx(tx, invoice)
		})
	})
}

// Save creates or updates a return invoice together with its records and
// their returned sources. Records dropped from the header are removed.
func (r *GormReturnInvoiceRepository) Save(ctx context.Context, invoice *trade.ReturnInvoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveReturnInvoiceTx(tx, invoice)
	})
}

func saveReturnInvoiceTx(tx *gorm.DB, invoice *trade.ReturnInvoice) error {
	if err := tx.Omit("Records").Save(invoice).Error; err != nil {
		return err
	}

	currentIDs := make([]uuid.UUID, len(invoice.Records))
	for i, rec := range invoice.Records {
		currentIDs[i] = rec.ID
	}

	removed := tx.Model(&trade.ReturnRecord{}).Where("return_invoice_id = ?", invoice.ID)
	if len(currentIDs) > 0 {
		removed = removed.Where("id NOT IN ?", currentIDs)
	}
	var removedIDs []uuid.UUID
	if err := removed.Pluck("id", &removedIDs).Error; err != nil {
		return err
	}
	if len(removedIDs) > 0 {
		if err := tx.Where("return_record_id IN ?", removedIDs).
			Delete(&trade.ReturnedSource{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", removedIDs).
			Delete(&trade.ReturnRecord{}).Error; err != nil {
			return err
		}
	}

	for i := range invoice.Records {
		rec := &invoice.Records[i]
		rec.ReturnInvoiceID = invoice.ID
		if err := tx.Omit("Sources").Save(rec).Error; err != nil {
			return err
		}
		for j := range rec.Sources {
			rec.Sources[j].ReturnRecordID = rec.ID
			if err := tx.Save(&rec.Sources[j]).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// Delete deletes a return invoice with its records and sources
func (r *GormReturnInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recordIDs []uuid.UUID
		if err := tx.Model(&trade.ReturnRecord{}).
			Where("return_invoice_id = ?", id).
			Pluck("id", &recordIDs).Error; err != nil {
			return err
		}

		if len(recordIDs) > 0 {
			if err := tx.Where("return_record_id IN ?", recordIDs).
				Delete(&trade.ReturnedSource{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", recordIDs).
				Delete(&trade.ReturnRecord{}).Error; err != nil {
				return err
			}
		}

		result := tx.Delete(&trade.ReturnInvoice{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Count counts return invoices matching the filter
func (r *GormReturnInvoiceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := applyInvoiceFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&trade.ReturnInvoice{}),
		filter,
	)

	if salesInvoiceID, ok := filter.Filters["sales_invoice_id"]; ok {
		query = query.Where("sales_invoice_id = ?", salesInvoiceID)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
