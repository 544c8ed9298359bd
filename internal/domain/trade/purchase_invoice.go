package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmacy/backend/internal/domain/ledger"
	"github.com/pharmacy/backend/internal/domain/shared"
)

// PurchaseInvoice is the header of one stock intake. It owns the lots the
// intake created; the lots keep their own remaining counters afterwards.
type PurchaseInvoice struct {
	shared.BaseAggregateRoot
	Serial     string          `gorm:"not null;uniqueIndex"`
	Date       time.Time       `gorm:"not null;index"`
	SupplierID *uuid.UUID      `gorm:"type:uuid;index"`
	CreatedBy  *uuid.UUID      `gorm:"type:uuid"`
	TotalCost  decimal.Decimal `gorm:"type:decimal(15,4);not null"`

	Lots []ledger.PurchaseLot `gorm:"foreignKey:PurchaseInvoiceID"`
}

// NewPurchaseInvoice creates a purchase invoice header. The serial is
// assigned by the store on first save. The date may not lie in the future;
// same-day intakes are compared at day precision.
func NewPurchaseInvoice(date time.Time, supplierID, createdBy *uuid.UUID) (*PurchaseInvoice, error) {
	if dayOf(date).After(dayOf(time.Now())) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Purchase date cannot be in the future")
	}
	return &PurchaseInvoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Date:              date,
		SupplierID:        supplierID,
		CreatedBy:         createdBy,
		TotalCost:         decimal.Zero,
	}, nil
}

// RecalculateTotal sets the header total from the owned lots:
// sum of quantity times buy price per lot.
func (inv *PurchaseInvoice) RecalculateTotal() {
	total := decimal.Zero
	for _, lot := range inv.Lots {
		total = total.Add(lot.BuyPrice.Mul(decimal.NewFromInt(lot.Quantity)))
	}
	inv.TotalCost = total.Round(4)
}

// AffectedProducts returns the distinct product ids the invoice's lots touch
func (inv *PurchaseInvoice) AffectedProducts() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(inv.Lots))
	out := make([]uuid.UUID, 0, len(inv.Lots))
	for _, lot := range inv.Lots {
		if _, ok := seen[lot.ProductID]; !ok {
			seen[lot.ProductID] = struct{}{}
			out = append(out, lot.ProductID)
		}
	}
	return out
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
