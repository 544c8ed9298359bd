package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmacy/backend/internal/domain/catalog"
	"github.com/pharmacy/backend/internal/domain/ledger"
	"github.com/pharmacy/backend/internal/domain/shared"
)

// SalesAllocation is one sold line: a product, a packaging unit, a quantity
// and the lots the quantity was drawn from. The multiplier is snapshotted at
// sale time so later returns do not depend on the conversion table.
type SalesAllocation struct {
	shared.BaseEntity
	SalesInvoiceID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID       uuid.UUID `gorm:"type:uuid;not null;index"`
	PackagingUnitID uuid.UUID `gorm:"type:uuid;not null"`
	Quantity        int64     `gorm:"not null"`
	Multiplier      int64     `gorm:"not null"`
	// UnitPrice is the price charged per packaging unit
	UnitPrice decimal.Decimal `gorm:"type:decimal(15,4);not null"`

	Sources []ledger.AllocationSource `gorm:"foreignKey:SalesAllocationID"`
}

// BaseQuantity returns the sold amount in base units
func (a *SalesAllocation) BaseQuantity() int64 {
	return a.Quantity * a.Multiplier
}

// ToReturn is the base-unit balance still eligible for return, derived from
// the sources rather than cached alongside them.
func (a *SalesAllocation) ToReturn() int64 {
	var total int64
	for _, s := range a.Sources {
		total += s.Quantity
	}
	return total
}

// LineTotal returns quantity times unit price
func (a *SalesAllocation) LineTotal() decimal.Decimal {
	return a.UnitPrice.Mul(decimal.NewFromInt(a.Quantity)).Round(4)
}

// SourcePointers exposes the sources as pointers for reversal planning
func (a *SalesAllocation) SourcePointers() []*ledger.AllocationSource {
	ptrs := make([]*ledger.AllocationSource, len(a.Sources))
	for i := range a.Sources {
		ptrs[i] = &a.Sources[i]
	}
	return ptrs
}

// SalesInvoice is the header of one sale. Channel selects the price list:
// retail is the walk-in counter, pharmacy the prescription desk.
type SalesInvoice struct {
	shared.BaseAggregateRoot
	Serial     string               `gorm:"not null;uniqueIndex"`
	Date       time.Time            `gorm:"not null;index"`
	Channel    catalog.SalesChannel `gorm:"not null"`
	CustomerID *uuid.UUID           `gorm:"type:uuid;index"`
	CreatedBy  *uuid.UUID           `gorm:"type:uuid"`
	// TotalCost is the sum of line totals before the discount
	TotalCost decimal.Decimal `gorm:"type:decimal(15,4);not null"`
	// Offer is a flat discount subtracted from the total
	Offer decimal.Decimal `gorm:"type:decimal(15,4);not null"`

	Allocations []SalesAllocation `gorm:"foreignKey:SalesInvoiceID"`
}

// NewSalesInvoice creates a sales invoice header. The serial is assigned by
// the store on first save.
func NewSalesInvoice(date time.Time, channel catalog.SalesChannel,
	customerID, createdBy *uuid.UUID, offer decimal.Decimal) (*SalesInvoice, error) {

	if !channel.IsValid() {
		return nil, shared.NewDomainErrorf("VALIDATION_ERROR", "Unknown sales channel %q", channel)
	}
	if offer.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Discount cannot be negative")
	}
	return &SalesInvoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Date:              date,
		Channel:           channel,
		CustomerID:        customerID,
		CreatedBy:         createdBy,
		TotalCost:         decimal.Zero,
		Offer:             offer,
	}, nil
}

// RecalculateTotal sets the header total from the owned allocations, with the
// discount subtracted. The total never drops below zero.
func (inv *SalesInvoice) RecalculateTotal() {
	total := decimal.Zero
	for i := range inv.Allocations {
		total = total.Add(inv.Allocations[i].LineTotal())
	}
	total = total.Sub(inv.Offer)
	if total.IsNegative() {
		total = decimal.Zero
	}
	inv.TotalCost = total.Round(4)
}

// AllocationFor returns the owned allocation with the given id
func (inv *SalesInvoice) AllocationFor(allocationID uuid.UUID) (*SalesAllocation, error) {
	for i := range inv.Allocations {
		if inv.Allocations[i].GetID() == allocationID {
			return &inv.Allocations[i], nil
		}
	}
	return nil, shared.NewDomainErrorf("NOT_FOUND", "Allocation %s not found on invoice %s", allocationID, inv.Serial)
}

// AffectedProducts returns the distinct product ids the invoice's lines touch
func (inv *SalesInvoice) AffectedProducts() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(inv.Allocations))
	out := make([]uuid.UUID, 0, len(inv.Allocations))
	for _, a := range inv.Allocations {
		if _, ok := seen[a.ProductID]; !ok {
			seen[a.ProductID] = struct{}{}
			out = append(out, a.ProductID)
		}
	}
	return out
}
