package catalog

import (
	"github.com/google/uuid"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// Event types for the catalog domain
const (
	EventLowStockRaised = "catalog.product.low_stock_raised"
)

// LowStockRaisedEvent is raised when a product's remaining stock drops below
// its minimum threshold
type LowStockRaisedEvent struct {
	shared.BaseDomainEvent
	ProductName string `json:"product_name"`
	Remaining   int64  `json:"remaining"`
	MinStock    int64  `json:"min_stock"`
}

// NewLowStockRaisedEvent creates a low stock event
func NewLowStockRaisedEvent(productID uuid.UUID, name string, remaining, minStock int64) *LowStockRaisedEvent {
	return &LowStockRaisedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventLowStockRaised, "Product", productID),
		ProductName:     name,
		Remaining:       remaining,
		MinStock:        minStock,
	}
}
