package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// SalesChannel identifies the price list a price belongs to
type SalesChannel string

const (
	ChannelRetail    SalesChannel = "retail"
	ChannelPharmacy  SalesChannel = "pharmacy"
	ChannelWholesale SalesChannel = "wholesale"
)

// IsValid checks if the sales channel is recognized
func (c SalesChannel) IsValid() bool {
	switch c {
	case ChannelRetail, ChannelPharmacy, ChannelWholesale:
		return true
	}
	return false
}

// priceBlendGamma is the weight of the previous suggestion when a new
// purchase price is folded in: new = (gamma*old + incoming) / (1 + gamma)
var priceBlendGamma = decimal.NewFromFloat(0.9)

// Product is the product aggregate root. Quantities are always tracked in
// base units; packaging units map onto base units through conversions.
type Product struct {
	shared.BaseAggregateRoot
	Name        string `gorm:"not null;uniqueIndex"`
	Description string
	Barcode     string `gorm:"index"`

	// MinStock is the low-stock threshold in base units
	MinStock int64 `gorm:"not null;default:0"`
	// LowStockAlerted records that a low-stock alert has been raised and not
	// yet cleared by a restock
	LowStockAlerted bool `gorm:"not null;default:false"`

	// TotalRemaining is the derived sum of remaining base units across all lots
	TotalRemaining int64 `gorm:"not null;default:0"`

	// Ceiling prices are the maximum per-base-unit price across active lots
	RetailCeiling    decimal.Decimal `gorm:"type:decimal(15,4)"`
	PharmacyCeiling  decimal.Decimal `gorm:"type:decimal(15,4)"`
	WholesaleCeiling decimal.Decimal `gorm:"type:decimal(15,4)"`

	// Suggested prices are an exponential blend of incoming lot prices,
	// seeded from the first lot
	BuySuggested       decimal.Decimal `gorm:"type:decimal(15,4)"`
	RetailSuggested    decimal.Decimal `gorm:"type:decimal(15,4)"`
	PharmacySuggested  decimal.Decimal `gorm:"type:decimal(15,4)"`
	WholesaleSuggested decimal.Decimal `gorm:"type:decimal(15,4)"`
	PriceSeeded        bool            `gorm:"not null;default:false"`
}

// NewProduct creates a new product
func NewProduct(name, description string, minStock int64) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Product name is required")
	}
	if minStock < 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Minimum stock cannot be negative")
	}
	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Description:       description,
		MinStock:          minStock,
	}, nil
}

// UpdateDetails updates the product master data
func (p *Product) UpdateDetails(name, description string, minStock int64) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Product name is required")
	}
	if minStock < 0 {
		return shared.NewDomainError("VALIDATION_ERROR", "Minimum stock cannot be negative")
	}
	p.Name = name
	p.Description = description
	p.MinStock = minStock
	p.BumpVersion()
	return nil
}

// ApplyStockSnapshot replaces the derived stock totals and ceiling prices.
// It raises a LowStockRaised event when the total crosses below the
// threshold and no alert is outstanding.
func (p *Product) ApplyStockSnapshot(totalRemaining int64, retail, pharmacy, wholesale decimal.Decimal) {
	p.TotalRemaining = totalRemaining
	p.RetailCeiling = retail
	p.PharmacyCeiling = pharmacy
	p.WholesaleCeiling = wholesale

	if p.MinStock > 0 && totalRemaining < p.MinStock && !p.LowStockAlerted {
		p.LowStockAlerted = true
		p.AddDomainEvent(NewLowStockRaisedEvent(p.GetID(), p.Name, totalRemaining, p.MinStock))
	}
	p.BumpVersion()
}

// ClearLowStockAlert resets the low-stock flag after a restock
func (p *Product) ClearLowStockAlert() {
	if !p.LowStockAlerted {
		return
	}
	p.LowStockAlerted = false
	p.BumpVersion()
}

// CeilingPrice returns the per-base-unit ceiling price for a channel
func (p *Product) CeilingPrice(channel SalesChannel) decimal.Decimal {
	switch channel {
	case ChannelPharmacy:
		return p.PharmacyCeiling
	case ChannelWholesale:
		return p.WholesaleCeiling
	default:
		return p.RetailCeiling
	}
}

// SuggestedPrice returns the blended per-base-unit price suggestion for a channel
func (p *Product) SuggestedPrice(channel SalesChannel) decimal.Decimal {
	switch channel {
	case ChannelPharmacy:
		return p.PharmacySuggested
	case ChannelWholesale:
		return p.WholesaleSuggested
	default:
		return p.RetailSuggested
	}
}

// BlendSuggestedPrices folds the per-base-unit prices of a newly received lot
// into the suggested prices. The first lot seeds the suggestion directly.
func (p *Product) BlendSuggestedPrices(buy, retail, pharmacy, wholesale decimal.Decimal) {
	if !p.PriceSeeded {
		p.BuySuggested = buy.Round(4)
		p.RetailSuggested = retail.Round(4)
		p.PharmacySuggested = pharmacy.Round(4)
		p.WholesaleSuggested = wholesale.Round(4)
		p.PriceSeeded = true
	} else {
		p.BuySuggested = blendPrice(p.BuySuggested, buy)
		p.RetailSuggested = blendPrice(p.RetailSuggested, retail)
		p.PharmacySuggested = blendPrice(p.PharmacySuggested, pharmacy)
		p.WholesaleSuggested = blendPrice(p.WholesaleSuggested, wholesale)
	}
	p.BumpVersion()
}

func blendPrice(old, incoming decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	return priceBlendGamma.Mul(old).Add(incoming).Div(one.Add(priceBlendGamma)).Round(4)
}

// IsLowStock reports whether the remaining stock is below the threshold
func (p *Product) IsLowStock() bool {
	return p.MinStock > 0 && p.TotalRemaining < p.MinStock
}
