package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pharmacy/backend/internal/domain/catalog"
	"github.com/pharmacy/backend/internal/domain/ledger"
	"github.com/pharmacy/backend/internal/domain/shared"
)

// AggregateMaintainer recomputes the per-product derived fields after lot
// mutations. The fields are caches over the lot set, so a failed
// recomputation is logged and never fails the invoice operation that
// triggered it.
type AggregateMaintainer struct {
	products       catalog.ProductRepository
	lots           ledger.PurchaseLotRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewAggregateMaintainer creates an aggregate maintainer
func NewAggregateMaintainer(products catalog.ProductRepository, lots ledger.PurchaseLotRepository, logger *zap.Logger) *AggregateMaintainer {
	return &AggregateMaintainer{
		products: products,
		lots:     lots,
		logger:   logger,
	}
}

// SetEventPublisher sets the event publisher for low-stock notifications
func (m *AggregateMaintainer) SetEventPublisher(publisher shared.EventPublisher) {
	m.eventPublisher = publisher
}

// Recompute refreshes the total remaining and ceiling prices for a product.
// Idempotent: recomputing an unchanged lot set writes the same values again.
// The caller must hold the product's critical section.
func (m *AggregateMaintainer) Recompute(ctx context.Context, productID uuid.UUID) {
	if err := m.recompute(ctx, productID); err != nil {
		m.logger.Error("product aggregate recomputation failed",
			zap.String("product_id", productID.String()),
			zap.Error(err))
	}
}

func (m *AggregateMaintainer) recompute(ctx context.Context, productID uuid.UUID) error {
	lots, err := m.lots.FindByProduct(ctx, productID)
	if err != nil {
		return err
	}
	ptrs := make([]*ledger.PurchaseLot, len(lots))
	for i := range lots {
		ptrs[i] = &lots[i]
	}
	summary := ledger.Summarize(ptrs)

	product, err := m.products.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	product.ApplyStockSnapshot(summary.TotalRemaining,
		summary.RetailCeiling, summary.PharmacyCeiling, summary.WholesaleCeiling)

	if err := m.products.Save(ctx, product); err != nil {
		return err
	}
	m.publishEvents(ctx, product)
	return nil
}

// RegisterPurchase folds a freshly received lot's per-base-unit prices into
// the product's suggested prices and clears an outstanding low-stock alert.
// Same failure policy as Recompute. The caller must hold the product's
// critical section.
func (m *AggregateMaintainer) RegisterPurchase(ctx context.Context, productID uuid.UUID, buy, retail, pharmacy, wholesale decimal.Decimal) {
	if err := m.registerPurchase(ctx, productID, buy, retail, pharmacy, wholesale); err != nil {
		m.logger.Error("product price suggestion update failed",
			zap.String("product_id", productID.String()),
			zap.Error(err))
	}
}

func (m *AggregateMaintainer) registerPurchase(ctx context.Context, productID uuid.UUID, buy, retail, pharmacy, wholesale decimal.Decimal) error {
	product, err := m.products.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	product.BlendSuggestedPrices(buy, retail, pharmacy, wholesale)
	product.ClearLowStockAlert()
	if err := m.products.Save(ctx, product); err != nil {
		return err
	}
	m.publishEvents(ctx, product)
	return nil
}

func (m *AggregateMaintainer) publishEvents(ctx context.Context, product *catalog.Product) {
	events := product.PullDomainEvents()
	if len(events) == 0 || m.eventPublisher == nil {
		return
	}
	if err := m.eventPublisher.Publish(ctx, events...); err != nil {
		m.logger.Warn("failed to publish product events",
			zap.String("product_id", product.GetID().String()),
			zap.Error(err))
	}
}
