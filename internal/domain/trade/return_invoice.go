package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmacy/backend/internal/domain/ledger"
	"github.com/pharmacy/backend/internal/domain/shared"
)

// ReturnedSource records base units handed back to one lot together with the
// money moved at both ends of that hand-back.
type ReturnedSource struct {
	shared.BaseEntity
	ReturnRecordID uuid.UUID       `gorm:"type:uuid;not null;index"`
	LotID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity       int64           `gorm:"not null"`
	PurchasePrice  decimal.Decimal `gorm:"type:decimal(15,4);not null"`
	SellingPrice   decimal.Decimal `gorm:"type:decimal(15,4);not null"`
	Loss           decimal.Decimal `gorm:"type:decimal(15,4);not null"`
}

// ReturnRecord is one returned line, referencing the sold allocation it
// reverses. Quantity is in the return packaging unit, which may be smaller
// than the unit the sale was made in.
type ReturnRecord struct {
	shared.BaseEntity
	ReturnInvoiceID   uuid.UUID `gorm:"type:uuid;not null;index"`
	SalesAllocationID uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID         uuid.UUID `gorm:"type:uuid;not null"`
	PackagingUnitID   uuid.UUID `gorm:"type:uuid;not null"`
	Quantity          int64     `gorm:"not null"`
	Multiplier        int64     `gorm:"not null"`
	// Amount is the money refunded for this line at the sale price
	Amount    decimal.Decimal `gorm:"type:decimal(15,4);not null"`
	TotalLoss decimal.Decimal `gorm:"type:decimal(15,4);not null"`

	Sources []ReturnedSource `gorm:"foreignKey:ReturnRecordID"`
}

// BaseQuantity returns the returned amount in base units
func (r *ReturnRecord) BaseQuantity() int64 {
	return r.Quantity * r.Multiplier
}

// NewReturnRecord materializes a return line from an applied reversal plan
func NewReturnRecord(invoiceID uuid.UUID, allocation *SalesAllocation,
	packagingUnitID uuid.UUID, quantity, multiplier int64, plan *ledger.ReversalPlan) *ReturnRecord {

	rec := &ReturnRecord{
		BaseEntity:        shared.NewBaseEntity(),
		ReturnInvoiceID:   invoiceID,
		SalesAllocationID: allocation.GetID(),
		ProductID:         allocation.ProductID,
		PackagingUnitID:   packagingUnitID,
		Quantity:          quantity,
		Multiplier:        multiplier,
		TotalLoss:         plan.TotalLoss,
	}
	amount := decimal.Zero
	for _, e := range plan.Entries {
		rec.Sources = append(rec.Sources, ReturnedSource{
			BaseEntity:     shared.NewBaseEntity(),
			ReturnRecordID: rec.GetID(),
			LotID:          e.Lot.GetID(),
			Quantity:       e.Quantity,
			PurchasePrice:  e.PurchasePrice,
			SellingPrice:   e.SellingPrice,
			Loss:           e.Loss,
		})
		amount = amount.Add(e.SellingPrice)
	}
	rec.Amount = amount.Round(4)
	return rec
}

// ReturnInvoice is the header of one customer return against a sales invoice
type ReturnInvoice struct {
	shared.BaseAggregateRoot
	Serial         string     `gorm:"not null;uniqueIndex"`
	Date           time.Time  `gorm:"not null;index"`
	SalesInvoiceID uuid.UUID  `gorm:"type:uuid;not null;index"`
	CustomerID     *uuid.UUID `gorm:"type:uuid"`
	CreatedBy      *uuid.UUID `gorm:"type:uuid"`
	Reason         string     `gorm:"not null"`
	// TotalAmount is the money refunded across all lines
	TotalAmount decimal.Decimal `gorm:"type:decimal(15,4);not null"`
	TotalLoss   decimal.Decimal `gorm:"type:decimal(15,4);not null"`

	Records []ReturnRecord `gorm:"foreignKey:ReturnInvoiceID"`
}

// NewReturnInvoice creates a return invoice header. The serial is assigned
// by the store on first save.
func NewReturnInvoice(date time.Time, salesInvoiceID uuid.UUID,
	customerID, createdBy *uuid.UUID, reason string) (*ReturnInvoice, error) {

	if salesInvoiceID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Originating sales invoice is required")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Return reason is required")
	}
	return &ReturnInvoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Date:              date,
		SalesInvoiceID:    salesInvoiceID,
		CustomerID:        customerID,
		CreatedBy:         createdBy,
		Reason:            strings.TrimSpace(reason),
		TotalAmount:       decimal.Zero,
		TotalLoss:         decimal.Zero,
	}, nil
}

// RecalculateTotals sets the header refund and loss totals from the records
func (inv *ReturnInvoice) RecalculateTotals() {
	amount := decimal.Zero
	loss := decimal.Zero
	for i := range inv.Records {
		amount = amount.Add(inv.Records[i].Amount)
		loss = loss.Add(inv.Records[i].TotalLoss)
	}
	inv.TotalAmount = amount.Round(4)
	inv.TotalLoss = loss.Round(4)
}

// AffectedProducts returns the distinct product ids the invoice's lines touch
func (inv *ReturnInvoice) AffectedProducts() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(inv.Records))
	out := make([]uuid.UUID, 0, len(inv.Records))
	for _, r := range inv.Records {
		if _, ok := seen[r.ProductID]; !ok {
			seen[r.ProductID] = struct{}{}
			out = append(out, r.ProductID)
		}
	}
	return out
}
