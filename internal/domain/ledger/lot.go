package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmacy/backend/internal/domain/catalog"
	"github.com/pharmacy/backend/internal/domain/shared"
)

// PurchaseLot is a single purchase batch of a product. Prices are denominated
// per the packaging unit the lot was bought in; the remaining counter is kept
// in base units. InvoiceDate mirrors the owning purchase invoice's date so
// stock can be ordered by age without a join.
type PurchaseLot struct {
	shared.BaseEntity
	PurchaseInvoiceID uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID         uuid.UUID `gorm:"type:uuid;not null;index"`
	PackagingUnitID   uuid.UUID `gorm:"type:uuid;not null"`

	// Quantity is the purchased amount in the packaging unit
	Quantity int64 `gorm:"not null"`
	// Multiplier is the base units per packaging unit, snapshotted at purchase
	Multiplier int64 `gorm:"not null"`
	// Remaining is the unsold amount in base units
	Remaining int64 `gorm:"not null"`

	BuyPrice       decimal.Decimal `gorm:"type:decimal(15,4);not null"`
	RetailPrice    decimal.Decimal `gorm:"type:decimal(15,4);not null"`
	PharmacyPrice  decimal.Decimal `gorm:"type:decimal(15,4);not null"`
	WholesalePrice decimal.Decimal `gorm:"type:decimal(15,4);not null"`

	ExpiryDate  *time.Time `gorm:"type:date"`
	InvoiceDate time.Time  `gorm:"not null;index"`
}

// NewPurchaseLot creates a lot with remaining stock equal to its full capacity
func NewPurchaseLot(invoiceID, productID, packagingUnitID uuid.UUID, invoiceDate time.Time,
	quantity, multiplier int64, buyPrice, retailPrice, pharmacyPrice, wholesalePrice decimal.Decimal,
	expiryDate *time.Time) (*PurchaseLot, error) {

	if quantity <= 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Lot quantity must be greater than zero")
	}
	if multiplier <= 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Lot multiplier must be greater than zero")
	}
	if buyPrice.IsNegative() || retailPrice.IsNegative() || pharmacyPrice.IsNegative() || wholesalePrice.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Lot prices cannot be negative")
	}
	return &PurchaseLot{
		BaseEntity:        shared.NewBaseEntity(),
		PurchaseInvoiceID: invoiceID,
		ProductID:         productID,
		PackagingUnitID:   packagingUnitID,
		Quantity:          quantity,
		Multiplier:        multiplier,
		Remaining:         quantity * multiplier,
		BuyPrice:          buyPrice,
		RetailPrice:       retailPrice,
		PharmacyPrice:     pharmacyPrice,
		WholesalePrice:    wholesalePrice,
		ExpiryDate:        expiryDate,
		InvoiceDate:       invoiceDate,
	}, nil
}

// Capacity returns the lot's full size in base units
func (l *PurchaseLot) Capacity() int64 {
	return l.Quantity * l.Multiplier
}

// IsActive reports whether the lot still has unsold stock
func (l *PurchaseLot) IsActive() bool {
	return l.Remaining > 0
}

// Consume decrements the remaining base units
func (l *PurchaseLot) Consume(baseUnits int64) error {
	if baseUnits <= 0 {
		return shared.NewDomainError("VALIDATION_ERROR", "Consumed quantity must be greater than zero")
	}
	if baseUnits > l.Remaining {
		return shared.NewDomainErrorf("INSUFFICIENT_STOCK",
			"Lot has %d base units remaining, cannot consume %d", l.Remaining, baseUnits)
	}
	l.Remaining -= baseUnits
	return nil
}

// Restore gives base units back to the lot, never above its capacity
func (l *PurchaseLot) Restore(baseUnits int64) error {
	if baseUnits <= 0 {
		return shared.NewDomainError("VALIDATION_ERROR", "Restored quantity must be greater than zero")
	}
	if l.Remaining+baseUnits > l.Capacity() {
		return shared.NewDomainErrorf("INVALID_STATE",
			"Restoring %d base units would exceed lot capacity %d", baseUnits, l.Capacity())
	}
	l.Remaining += baseUnits
	return nil
}

// ChannelPrice returns the per-packaging-unit sale price for a channel
func (l *PurchaseLot) ChannelPrice(channel catalog.SalesChannel) decimal.Decimal {
	switch channel {
	case catalog.ChannelPharmacy:
		return l.PharmacyPrice
	case catalog.ChannelWholesale:
		return l.WholesalePrice
	default:
		return l.RetailPrice
	}
}

// UnitChannelPrice returns the per-base-unit sale price for a channel
func (l *PurchaseLot) UnitChannelPrice(channel catalog.SalesChannel) decimal.Decimal {
	return l.ChannelPrice(channel).Div(decimal.NewFromInt(l.Multiplier)).Round(4)
}

// UnitBuyPrice returns the per-base-unit cost
func (l *PurchaseLot) UnitBuyPrice() decimal.Decimal {
	return l.BuyPrice.Div(decimal.NewFromInt(l.Multiplier)).Round(4)
}

// IsExpired reports whether the lot has passed its expiry date
func (l *PurchaseLot) IsExpired(now time.Time) bool {
	if l.ExpiryDate == nil {
		return false
	}
	return l.ExpiryDate.Before(truncateToDay(now))
}

// ExpiresWithin reports whether the lot expires within the given number of days
func (l *PurchaseLot) ExpiresWithin(now time.Time, days int) bool {
	if l.ExpiryDate == nil {
		return false
	}
	cutoff := truncateToDay(now).AddDate(0, 0, days)
	return !l.ExpiryDate.After(cutoff)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
