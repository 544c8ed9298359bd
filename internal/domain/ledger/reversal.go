package ledger

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// ReversalEntry is one step of a reversal plan: hand Quantity base units from
// a sale back to the lot it was drawn from, with the money moved at both ends.
type ReversalEntry struct {
	Source        *AllocationSource
	Lot           *PurchaseLot
	Quantity      int64
	PurchasePrice decimal.Decimal
	SellingPrice  decimal.Decimal
	Loss          decimal.Decimal
}

// ReversalPlan is the outcome of planning a return against an allocation's
// sources. Apply performs the mutations; planning touches nothing.
type ReversalPlan struct {
	BaseQuantity int64
	Entries      []ReversalEntry
	TotalLoss    decimal.Decimal
}

// ValidateReturnUnit rejects returns in a packaging unit larger than the one
// the sale was made in.
func ValidateReturnUnit(returnMultiplier, saleMultiplier int64) error {
	if returnMultiplier > saleMultiplier {
		return shared.NewDomainErrorf("VOLUME_MISMATCH",
			"Cannot return in a unit of %d base units when the sale unit holds %d", returnMultiplier, saleMultiplier)
	}
	return nil
}

// PlanReversal distributes a return of baseQuantity base units over the
// allocation's sources, most recently purchased lot first, ties broken by
// source creation time descending. salePrice is the allocation's price per
// sale packaging unit and saleMultiplier that unit's base-unit factor; the
// per-entry loss is the cost of the goods taken back minus the revenue given
// up. Returns SOURCE_EXHAUSTED if the sources cannot cover the request.
func PlanReversal(sources []*AllocationSource, lots map[uuid.UUID]*PurchaseLot,
	baseQuantity int64, salePrice decimal.Decimal, saleMultiplier int64) (*ReversalPlan, error) {

	if baseQuantity <= 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Return quantity must be greater than zero")
	}

	var returnable int64
	for _, s := range sources {
		returnable += s.Quantity
	}
	if baseQuantity > returnable {
		return nil, shared.NewDomainErrorf("VALIDATION_ERROR",
			"Return of %d base units exceeds the returnable balance of %d", baseQuantity, returnable)
	}

	ordered := make([]*AllocationSource, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].LotInvoiceDate.Equal(ordered[j].LotInvoiceDate) {
			return ordered[i].LotInvoiceDate.After(ordered[j].LotInvoiceDate)
		}
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})

	salePerBase := salePrice.Div(decimal.NewFromInt(saleMultiplier))

	plan := &ReversalPlan{BaseQuantity: baseQuantity, TotalLoss: decimal.Zero}
	outstanding := baseQuantity
	for _, src := range ordered {
		if outstanding == 0 {
			break
		}
		if src.Quantity == 0 {
			continue
		}
		lot, ok := lots[src.LotID]
		if !ok {
			return nil, shared.NewDomainErrorf("SOURCE_EXHAUSTED",
				"Allocation source references missing lot %s", src.LotID)
		}
		take := src.Quantity
		if take > outstanding {
			take = outstanding
		}
		qty := decimal.NewFromInt(take)
		purchasePrice := qty.Mul(lot.BuyPrice).Div(decimal.NewFromInt(lot.Multiplier)).Round(4)
		sellingPrice := qty.Mul(salePerBase).Round(4)
		loss := purchasePrice.Sub(sellingPrice)

		plan.Entries = append(plan.Entries, ReversalEntry{
			Source:        src,
			Lot:           lot,
			Quantity:      take,
			PurchasePrice: purchasePrice,
			SellingPrice:  sellingPrice,
			Loss:          loss,
		})
		plan.TotalLoss = plan.TotalLoss.Add(loss)
		outstanding -= take
	}
	if outstanding > 0 {
		return nil, shared.NewDomainErrorf("SOURCE_EXHAUSTED",
			"Allocation sources cover only %d of %d base units requested", baseQuantity-outstanding, baseQuantity)
	}
	return plan, nil
}

// Apply restores the planned quantities to the lots and shrinks the source
// entries. On a mid-walk failure every already-applied entry is undone before
// the error is returned.
func (p *ReversalPlan) Apply() error {
	for i, e := range p.Entries {
		if err := e.Lot.Restore(e.Quantity); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = p.Entries[j].Lot.Consume(p.Entries[j].Quantity)
				p.Entries[j].Source.Quantity += p.Entries[j].Quantity
			}
			return err
		}
		p.Entries[i].Source.Quantity -= e.Quantity
	}
	return nil
}

// Revert re-consumes the planned quantities from the lots and restores the
// source entries. Used when a later step of the owning invoice fails.
func (p *ReversalPlan) Revert() error {
	for _, e := range p.Entries {
		if err := e.Lot.Consume(e.Quantity); err != nil {
			return err
		}
		e.Source.Quantity += e.Quantity
	}
	return nil
}
