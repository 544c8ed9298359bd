package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// PurchaseLotRepository defines the lot persistence interface
type PurchaseLotRepository interface {
	shared.Repository[PurchaseLot]
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]PurchaseLot, error)
	FindActiveByProduct(ctx context.Context, productID uuid.UUID) ([]PurchaseLot, error)
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]PurchaseLot, error)
	FindExpiringBefore(ctx context.Context, cutoff time.Time) ([]PurchaseLot, error)
	SaveAll(ctx context.Context, lots []*PurchaseLot) error
	DeleteByInvoice(ctx context.Context, invoiceID uuid.UUID) error
}

// AllocationSourceRepository defines the allocation source persistence interface
type AllocationSourceRepository interface {
	FindByAllocation(ctx context.Context, allocationID uuid.UUID) ([]AllocationSource, error)
	FindByLot(ctx context.Context, lotID uuid.UUID) ([]AllocationSource, error)
	SaveAll(ctx context.Context, sources []*AllocationSource) error
	DeleteByAllocation(ctx context.Context, allocationID uuid.UUID) error
}
