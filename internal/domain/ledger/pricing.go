package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/pharmacy/backend/internal/domain/catalog"
)

// StockSummary holds the derived per-product figures recomputed after any
// lot mutation.
type StockSummary struct {
	TotalRemaining   int64
	RetailCeiling    decimal.Decimal
	PharmacyCeiling  decimal.Decimal
	WholesaleCeiling decimal.Decimal
}

// Summarize computes the total remaining base units over all lots and, for
// each channel, the highest per-base-unit price among lots that still hold
// stock. Exhausted lots count toward nothing but the total. The maximum is
// deliberate: stock on the shelf is never priced below its most expensive
// active lot.
func Summarize(lots []*PurchaseLot) StockSummary {
	s := StockSummary{
		RetailCeiling:    decimal.Zero,
		PharmacyCeiling:  decimal.Zero,
		WholesaleCeiling: decimal.Zero,
	}
	for _, lot := range lots {
		s.TotalRemaining += lot.Remaining
		if lot.Remaining <= 0 {
			continue
		}
		if p := lot.UnitChannelPrice(catalog.ChannelRetail); p.GreaterThan(s.RetailCeiling) {
			s.RetailCeiling = p
		}
		if p := lot.UnitChannelPrice(catalog.ChannelPharmacy); p.GreaterThan(s.PharmacyCeiling) {
			s.PharmacyCeiling = p
		}
		if p := lot.UnitChannelPrice(catalog.ChannelWholesale); p.GreaterThan(s.WholesaleCeiling) {
			s.WholesaleCeiling = p
		}
	}
	return s
}
