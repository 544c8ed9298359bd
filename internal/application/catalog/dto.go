package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmacy/backend/internal/domain/catalog"
)

// CreateProductRequest creates a product master record
type CreateProductRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"max=2000"`
	Barcode     string `json:"barcode" binding:"max=64"`
	MinStock    int64  `json:"min_stock" binding:"min=0"`
}

// UpdateProductRequest updates a product master record
type UpdateProductRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"max=2000"`
	Barcode     string `json:"barcode" binding:"max=64"`
	MinStock    int64  `json:"min_stock" binding:"min=0"`
}

// CreatePackagingUnitRequest creates a named unit of measure
type CreatePackagingUnitRequest struct {
	Name string `json:"name" binding:"required,min=1,max=50"`
}

// DefineConversionRequest binds a packaging unit to a product
type DefineConversionRequest struct {
	ProductID       uuid.UUID `json:"product_id" binding:"required"`
	PackagingUnitID uuid.UUID `json:"packaging_unit_id" binding:"required"`
	Multiplier      int64     `json:"multiplier" binding:"required,gt=0"`
	ScanCode        string    `json:"scan_code"`
}

// ProductResponse describes a product with its derived stock aggregates
type ProductResponse struct {
	ID                 uuid.UUID       `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	Barcode            string          `json:"barcode,omitempty"`
	MinStock           int64           `json:"min_stock"`
	TotalRemaining     int64           `json:"total_remaining"`
	LowStock           bool            `json:"low_stock"`
	RetailCeiling      decimal.Decimal `json:"retail_ceiling"`
	PharmacyCeiling    decimal.Decimal `json:"pharmacy_ceiling"`
	WholesaleCeiling   decimal.Decimal `json:"wholesale_ceiling"`
	BuySuggested       decimal.Decimal `json:"buy_suggested"`
	RetailSuggested    decimal.Decimal `json:"retail_suggested"`
	PharmacySuggested  decimal.Decimal `json:"pharmacy_suggested"`
	WholesaleSuggested decimal.Decimal `json:"wholesale_suggested"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ToProductResponse maps a product to its response
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:                 p.GetID(),
		Name:               p.Name,
		Description:        p.Description,
		Barcode:            p.Barcode,
		MinStock:           p.MinStock,
		TotalRemaining:     p.TotalRemaining,
		LowStock:           p.IsLowStock(),
		RetailCeiling:      p.RetailCeiling,
		PharmacyCeiling:    p.PharmacyCeiling,
		WholesaleCeiling:   p.WholesaleCeiling,
		BuySuggested:       p.BuySuggested,
		RetailSuggested:    p.RetailSuggested,
		PharmacySuggested:  p.PharmacySuggested,
		WholesaleSuggested: p.WholesaleSuggested,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

// PackagingUnitResponse describes a packaging unit
type PackagingUnitResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPackagingUnitResponse maps a packaging unit to its response
func ToPackagingUnitResponse(u *catalog.PackagingUnit) PackagingUnitResponse {
	return PackagingUnitResponse{
		ID:        u.GetID(),
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}

// ConversionResponse describes one product/unit binding
type ConversionResponse struct {
	ID              uuid.UUID `json:"id"`
	ProductID       uuid.UUID `json:"product_id"`
	PackagingUnitID uuid.UUID `json:"packaging_unit_id"`
	UnitName        string    `json:"unit_name,omitempty"`
	Multiplier      int64     `json:"multiplier"`
	ScanCode        *string   `json:"scan_code,omitempty"`
}

// ToConversionResponse maps a unit conversion to its response
func ToConversionResponse(c *catalog.UnitConversion) ConversionResponse {
	resp := ConversionResponse{
		ID:              c.GetID(),
		ProductID:       c.ProductID,
		PackagingUnitID: c.PackagingUnitID,
		Multiplier:      c.Multiplier,
		ScanCode:        c.ScanCode,
	}
	if c.PackagingUnit != nil {
		resp.UnitName = c.PackagingUnit.Name
	}
	return resp
}
