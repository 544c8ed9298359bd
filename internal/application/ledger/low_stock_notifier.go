package ledger

import (
	"context"

	"go.uber.org/zap"

	"github.com/pharmacy/backend/internal/domain/catalog"
	"github.com/pharmacy/backend/internal/domain/shared"
)

// LowStockNotifier surfaces low-stock events in the operational log so a
// restock can be scheduled before the product runs out.
type LowStockNotifier struct {
	logger *zap.Logger
}

// NewLowStockNotifier creates a low stock notifier
func NewLowStockNotifier(logger *zap.Logger) *LowStockNotifier {
	return &LowStockNotifier{logger: logger}
}

// Handle logs the low-stock alert
func (n *LowStockNotifier) Handle(_ context.Context, event shared.DomainEvent) error {
	e, ok := event.(*catalog.LowStockRaisedEvent)
	if !ok {
		return nil
	}
	n.logger.Warn("product stock below minimum",
		zap.String("product_id", e.AggregateID().String()),
		zap.String("product_name", e.ProductName),
		zap.Int64("remaining", e.Remaining),
		zap.Int64("min_stock", e.MinStock))
	return nil
}

// EventTypes returns the event types this notifier listens for
func (n *LowStockNotifier) EventTypes() []string {
	return []string{catalog.EventLowStockRaised}
}

var _ shared.EventHandler = (*LowStockNotifier)(nil)
