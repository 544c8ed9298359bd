package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmacy/backend/internal/domain/catalog"
	"github.com/pharmacy/backend/internal/domain/ledger"
)

// LotAvailability describes one lot's contribution to a product's stock
type LotAvailability struct {
	LotID       uuid.UUID  `json:"lot_id"`
	Remaining   int64      `json:"remaining"`
	Capacity    int64      `json:"capacity"`
	InvoiceDate time.Time  `json:"invoice_date"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
}

// StockAvailability is the answer to "how much of this product is on hand"
type StockAvailability struct {
	ProductID        uuid.UUID         `json:"product_id"`
	ProductName      string            `json:"product_name"`
	TotalRemaining   int64             `json:"total_remaining"`
	MinStock         int64             `json:"min_stock"`
	LowStock         bool              `json:"low_stock"`
	RetailCeiling    decimal.Decimal   `json:"retail_ceiling"`
	PharmacyCeiling  decimal.Decimal   `json:"pharmacy_ceiling"`
	WholesaleCeiling decimal.Decimal   `json:"wholesale_ceiling"`
	BuySuggested     decimal.Decimal   `json:"buy_suggested"`
	RetailSuggested  decimal.Decimal   `json:"retail_suggested"`
	Lots             []LotAvailability `json:"lots"`
}

// ExpiringLot is a lot approaching or past its expiry date
type ExpiringLot struct {
	LotID      uuid.UUID `json:"lot_id"`
	ProductID  uuid.UUID `json:"product_id"`
	Remaining  int64     `json:"remaining"`
	ExpiryDate time.Time `json:"expiry_date"`
	Expired    bool      `json:"expired"`
}

// StockService answers read-only stock questions. Availability is computed
// from the lots directly so callers see the ground truth even when the cached
// product aggregates lag behind.
type StockService struct {
	products catalog.ProductRepository
	lots     ledger.PurchaseLotRepository
}

// NewStockService creates a stock service
func NewStockService(products catalog.ProductRepository, lots ledger.PurchaseLotRepository) *StockService {
	return &StockService{products: products, lots: lots}
}

// GetAvailability reports a product's stock, lot by lot
func (s *StockService) GetAvailability(ctx context.Context, productID uuid.UUID) (*StockAvailability, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	lots, err := s.lots.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	ptrs := make([]*ledger.PurchaseLot, len(lots))
	for i := range lots {
		ptrs[i] = &lots[i]
	}
	summary := ledger.Summarize(ptrs)

	out := &StockAvailability{
		ProductID:        product.GetID(),
		ProductName:      product.Name,
		TotalRemaining:   summary.TotalRemaining,
		MinStock:         product.MinStock,
		LowStock:         product.MinStock > 0 && summary.TotalRemaining < product.MinStock,
		RetailCeiling:    summary.RetailCeiling,
		PharmacyCeiling:  summary.PharmacyCeiling,
		WholesaleCeiling: summary.WholesaleCeiling,
		BuySuggested:     product.BuySuggested,
		RetailSuggested:  product.SuggestedPrice(catalog.ChannelRetail),
	}
	for i := range lots {
		out.Lots = append(out.Lots, LotAvailability{
			LotID:       lots[i].GetID(),
			Remaining:   lots[i].Remaining,
			Capacity:    lots[i].Capacity(),
			InvoiceDate: lots[i].InvoiceDate,
			ExpiryDate:  lots[i].ExpiryDate,
		})
	}
	return out, nil
}

// ListExpiring reports lots with stock left that expire within the given
// number of days, already-expired lots included
func (s *StockService) ListExpiring(ctx context.Context, days int) ([]ExpiringLot, error) {
	now := time.Now()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, days)
	lots, err := s.lots.FindExpiringBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	out := make([]ExpiringLot, 0, len(lots))
	for i := range lots {
		if lots[i].Remaining == 0 || lots[i].ExpiryDate == nil {
			continue
		}
		out = append(out, ExpiringLot{
			LotID:      lots[i].GetID(),
			ProductID:  lots[i].ProductID,
			Remaining:  lots[i].Remaining,
			ExpiryDate: *lots[i].ExpiryDate,
			Expired:    lots[i].IsExpired(now),
		})
	}
	return out, nil
}
