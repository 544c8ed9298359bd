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

// GormPurchaseInvoiceRepository implements trade.PurchaseInvoiceRepository using GORM
type GormPurchaseInvoiceRepository struct {
	db *gorm.DB
}

// NewGormPurchaseInvoiceRepository creates a new GormPurchaseInvoiceRepository
func NewGormPurchaseInvoiceRepository(db *gorm.DB) *GormPurchaseInvoiceRepository {
	return &GormPurchaseInvoiceRepository{db: db}
}

// FindByID finds a purchase invoice with its lots
func (r *GormPurchaseInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.PurchaseInvoice, error) {
	var invoice trade.PurchaseInvoice
	if err := r.db.WithContext(ctx).
		Preload("Lots").
		First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindBySerial finds a purchase invoice by its serial
func (r *GormPurchaseInvoiceRepository) FindBySerial(ctx context.Context, serial string) (*trade.PurchaseInvoice, error) {
	var invoice trade.PurchaseInvoice
	if err := r.db.WithContext(ctx).
		Preload("Lots").
		Where("serial = ?", serial).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindAll finds purchase invoices with filtering
func (r *GormPurchaseInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.PurchaseInvoice, error) {
	var invoices []trade.PurchaseInvoice
	query := applyInvoiceFilter(
		r.db.WithContext(ctx).Model(&trade.PurchaseInvoice{}).Preload("Lots"),
		filter,
		InvoiceSortFields,
	)

	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// SaveNew persists a freshly created purchase invoice. The serial is derived
// inside the insert transaction so a concurrent same-day intake cannot slip a
// row in between derivation and insert; losing the race on the unique index
// re-derives and retries.
func (r *GormPurchaseInvoiceRepository) SaveNew(ctx context.Context, invoice *trade.PurchaseInvoice) error {
	return withSerialRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			serial, err := deriveSerial(ctx, tx, &trade.PurchaseInvoice{}, trade.KindPurchase, invoice.Date)
			if err != nil {
				return err
			}
			invoice.Serial = serial
			return saveInvoiceTx(tx, invoice)
		})
	})
}

// Save creates or updates a purchase invoice together with its lots. Lots
// dropped from the header since the last save are removed.
func (r *GormPurchaseInvoiceRepository) Save(ctx context.Context, invoice *trade.PurchaseInvoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveInvoiceTx(tx, invoice)
	})
}

func saveInvoiceTx(tx *gorm.DB, invoice *trade.PurchaseInvoice) error {
	if err := tx.Omit("Lots").Save(invoice).Error; err != nil {
		return err
	}

	currentLotIDs := make([]uuid.UUID, len(invoice.Lots))
	for i, lot := range invoice.Lots {
		currentLotIDs[i] = lot.ID
	}

	if len(currentLotIDs) > 0 {
		if err := tx.Where("purchase_invoice_id = ? AND id NOT IN ?", invoice.ID, currentLotIDs).
			Delete(&ledger.PurchaseLot{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("purchase_invoice_id = ?", invoice.ID).
			Delete(&ledger.PurchaseLot{}).Error; err != nil {
			return err
		}
	}

	for i := range invoice.Lots {
		invoice.Lots[i].PurchaseInvoiceID = invoice.ID
		if err := tx.Save(&invoice.Lots[i]).Error; err != nil {
			return err
		}
	}

	return nil
}

// Delete deletes a purchase invoice and its lots
func (r *GormPurchaseInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("purchase_invoice_id = ?", id).
			Delete(&ledger.PurchaseLot{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&trade.PurchaseInvoice{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Count counts purchase invoices matching the filter
func (r *GormPurchaseInvoiceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := applyInvoiceFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&trade.PurchaseInvoice{}),
		filter,
	)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyInvoiceFilter applies the shared invoice-header filter with sorting
// and pagination. The invoice tables share their header columns but not
// their amount columns, so each caller passes its own sort whitelist.
func applyInvoiceFilter(query *gorm.DB, filter shared.Filter, sortable map[string]bool) *gorm.DB {
	return applyInvoiceFilterWithoutPagination(query, filter).
		Scopes(SortScope(filter, sortable, "date"), PageScope(filter))
}

func applyInvoiceFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("serial LIKE ?", "%"+filter.Search+"%")
	}

	if from, ok := filter.Filters["date_from"]; ok {
		query = query.Where("date >= ?", from)
	}
	if to, ok := filter.Filters["date_to"]; ok {
		query = query.Where("date <= ?", to)
	}

	return query
}
