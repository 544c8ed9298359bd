package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// AllocationSource records how many base units a sale drew from one lot.
// Quantity shrinks as returns hand stock back; the allocation's returnable
// balance is the sum over its sources. LotInvoiceDate mirrors the lot's
// purchase-invoice date so return ordering needs no join.
type AllocationSource struct {
	shared.BaseEntity
	SalesAllocationID uuid.UUID `gorm:"type:uuid;not null;index"`
	LotID             uuid.UUID `gorm:"type:uuid;not null;index"`
	// Quantity is the not-yet-returned base units drawn from the lot
	Quantity int64 `gorm:"not null"`
	// DrawnQuantity is the base units originally drawn, fixed at creation
	DrawnQuantity  int64     `gorm:"not null"`
	LotInvoiceDate time.Time `gorm:"not null"`
}

// PlannedDraw is one step of an allocation plan: take Quantity base units
// from the lot at the given position in the planning input.
type PlannedDraw struct {
	Lot      *PurchaseLot
	Quantity int64
}

// AllocationPlan is the outcome of planning a FIFO allocation. It holds no
// mutations; Apply performs them so a failed line can be compensated without
// touching storage.
type AllocationPlan struct {
	ProductID uuid.UUID
	// BaseQuantity is the total base units the plan covers
	BaseQuantity int64
	Draws        []PlannedDraw
}

// PlanAllocation walks the product's lots oldest purchase first and plans
// draws until the requested base quantity is covered. Ordering is by the
// owning purchase invoice's date, ties broken by lot creation time. If the
// lots cannot cover the request the plan fails with the available total and
// nothing is mutated.
func PlanAllocation(productID uuid.UUID, lots []*PurchaseLot, baseQuantity int64) (*AllocationPlan, error) {
	if baseQuantity <= 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Requested quantity must be greater than zero")
	}

	active := make([]*PurchaseLot, 0, len(lots))
	var available int64
	for _, lot := range lots {
		if lot.ProductID == productID && lot.Remaining > 0 {
			active = append(active, lot)
			available += lot.Remaining
		}
	}
	if available < baseQuantity {
		return nil, shared.NewDomainErrorf("INSUFFICIENT_STOCK",
			"Insufficient stock: requested %d base units, only %d available", baseQuantity, available)
	}

	sort.SliceStable(active, func(i, j int) bool {
		if !active[i].InvoiceDate.Equal(active[j].InvoiceDate) {
			return active[i].InvoiceDate.Before(active[j].InvoiceDate)
		}
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})

	plan := &AllocationPlan{ProductID: productID, BaseQuantity: baseQuantity}
	outstanding := baseQuantity
	for _, lot := range active {
		if outstanding == 0 {
			break
		}
		take := lot.Remaining
		if take > outstanding {
			take = outstanding
		}
		plan.Draws = append(plan.Draws, PlannedDraw{Lot: lot, Quantity: take})
		outstanding -= take
	}
	return plan, nil
}

// Apply consumes the planned quantities from the lots and materializes the
// allocation sources. On a mid-walk failure every already-applied draw is
// rolled back before the error is returned.
func (p *AllocationPlan) Apply(allocationID uuid.UUID) ([]AllocationSource, error) {
	sources := make([]AllocationSource, 0, len(p.Draws))
	for i, draw := range p.Draws {
		if err := draw.Lot.Consume(draw.Quantity); err != nil {
			for j := i - 1; j >= 0; j-- {
				// capacity was just freed, Restore cannot fail here
				_ = p.Draws[j].Lot.Restore(p.Draws[j].Quantity)
			}
			return nil, err
		}
		sources = append(sources, AllocationSource{
			BaseEntity:        shared.NewBaseEntity(),
			SalesAllocationID: allocationID,
			LotID:             draw.Lot.GetID(),
			Quantity:          draw.Quantity,
			DrawnQuantity:     draw.Quantity,
			LotInvoiceDate:    draw.Lot.InvoiceDate,
		})
	}
	return sources, nil
}

// Revert restores every planned draw to its lot. Used by orchestrators when
// a later line of the same invoice fails after this plan was applied.
func (p *AllocationPlan) Revert() error {
	for _, draw := range p.Draws {
		if err := draw.Lot.Restore(draw.Quantity); err != nil {
			return err
		}
	}
	return nil
}
