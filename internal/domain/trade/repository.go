package trade

import (
	"context"

	"github.com/google/uuid"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// PurchaseInvoiceRepository defines purchase invoice persistence
type PurchaseInvoiceRepository interface {
	shared.Repository[PurchaseInvoice]
	FindBySerial(ctx context.Context, serial string) (*PurchaseInvoice, error)
	// SaveNew persists a freshly created invoice. The serial is derived
	// inside the insert transaction, never pre-reserved, and re-derived
	// when a concurrent same-day insert takes the counter first.
	SaveNew(ctx context.Context, invoice *PurchaseInvoice) error
}

// SalesInvoiceRepository defines sales invoice persistence
type SalesInvoiceRepository interface {
	shared.Repository[SalesInvoice]
	FindBySerial(ctx context.Context, serial string) (*SalesInvoice, error)
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]SalesInvoice, error)
	SaveNew(ctx context.Context, invoice *SalesInvoice) error
}

// ReturnInvoiceRepository defines return invoice persistence
type ReturnInvoiceRepository interface {
	shared.Repository[ReturnInvoice]
	FindBySerial(ctx context.Context, serial string) (*ReturnInvoice, error)
	FindBySalesInvoice(ctx context.Context, salesInvoiceID uuid.UUID) ([]ReturnInvoice, error)
	SaveNew(ctx context.Context, invoice *ReturnInvoice) error
}
