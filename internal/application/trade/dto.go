package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmacy/backend/internal/domain/catalog"
	"github.com/pharmacy/backend/internal/domain/ledger"
	"github.com/pharmacy/backend/internal/domain/trade"
)

// PurchaseLineRequest is one lot to receive on a purchase invoice
type PurchaseLineRequest struct {
	ProductID       uuid.UUID       `json:"product_id" binding:"required"`
	PackagingUnitID uuid.UUID       `json:"packaging_unit_id" binding:"required"`
	Quantity        int64           `json:"quantity" binding:"required,gt=0"`
	BuyPrice        decimal.Decimal `json:"buy_price"`
	RetailPrice     decimal.Decimal `json:"retail_price"`
	PharmacyPrice   decimal.Decimal `json:"pharmacy_price"`
	WholesalePrice  decimal.Decimal `json:"wholesale_price"`
	ExpiryDate      *time.Time      `json:"expiry_date"`
}

// CreatePurchaseInvoiceRequest creates a purchase invoice with its lots
type CreatePurchaseInvoiceRequest struct {
	Date           time.Time             `json:"date" binding:"required"`
	SupplierID     *uuid.UUID            `json:"supplier_id"`
	ActingUserID   *uuid.UUID            `json:"-"`
	IdempotencyKey string                `json:"-"`
	Lines          []PurchaseLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// SalesLineRequest is one sold line. Either the product and packaging unit
// pair or a scan code identifies what is being sold.
type SalesLineRequest struct {
	ProductID       uuid.UUID       `json:"product_id"`
	PackagingUnitID uuid.UUID       `json:"packaging_unit_id"`
	ScanCode        string          `json:"scan_code"`
	Quantity        int64           `json:"quantity" binding:"required,gt=0"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
}

// CreateSalesInvoiceRequest creates a sales invoice with its allocations
type CreateSalesInvoiceRequest struct {
	Date           time.Time            `json:"date" binding:"required"`
	Channel        catalog.SalesChannel `json:"channel" binding:"required"`
	CustomerID     *uuid.UUID           `json:"customer_id"`
	ActingUserID   *uuid.UUID           `json:"-"`
	Offer          decimal.Decimal      `json:"offer"`
	IdempotencyKey string               `json:"-"`
	Lines          []SalesLineRequest   `json:"lines" binding:"required,min=1,dive"`
}

// ReturnLineRequest returns part of one sold allocation. The packaging unit
// may differ from the sale unit as long as it is not larger.
type ReturnLineRequest struct {
	AllocationID    uuid.UUID  `json:"allocation_id" binding:"required"`
	PackagingUnitID *uuid.UUID `json:"packaging_unit_id"`
	Quantity        int64      `json:"quantity" binding:"required,gt=0"`
}

// CreateReturnInvoiceRequest creates a return against a sales invoice
type CreateReturnInvoiceRequest struct {
	SalesInvoiceID uuid.UUID           `json:"sales_invoice_id" binding:"required"`
	Date           time.Time           `json:"date" binding:"required"`
	Reason         string              `json:"reason" binding:"required"`
	ActingUserID   *uuid.UUID          `json:"-"`
	IdempotencyKey string              `json:"-"`
	Lines          []ReturnLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// PurchaseLotResponse describes one lot on a purchase invoice
type PurchaseLotResponse struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       uuid.UUID       `json:"product_id"`
	PackagingUnitID uuid.UUID       `json:"packaging_unit_id"`
	Quantity        int64           `json:"quantity"`
	Multiplier      int64           `json:"multiplier"`
	Remaining       int64           `json:"remaining"`
	BuyPrice        decimal.Decimal `json:"buy_price"`
	RetailPrice     decimal.Decimal `json:"retail_price"`
	PharmacyPrice   decimal.Decimal `json:"pharmacy_price"`
	WholesalePrice  decimal.Decimal `json:"wholesale_price"`
	ExpiryDate      *time.Time      `json:"expiry_date,omitempty"`
}

// PurchaseInvoiceResponse describes a purchase invoice
type PurchaseInvoiceResponse struct {
	ID         uuid.UUID             `json:"id"`
	Serial     string                `json:"serial"`
	Date       time.Time             `json:"date"`
	SupplierID *uuid.UUID            `json:"supplier_id,omitempty"`
	TotalCost  decimal.Decimal       `json:"total_cost"`
	CreatedAt  time.Time             `json:"created_at"`
	Lots       []PurchaseLotResponse `json:"lots"`
}

// ToPurchaseInvoiceResponse maps a purchase invoice to its response
func ToPurchaseInvoiceResponse(inv *trade.PurchaseInvoice) PurchaseInvoiceResponse {
	resp := PurchaseInvoiceResponse{
		ID:         inv.GetID(),
		Serial:     inv.Serial,
		Date:       inv.Date,
		SupplierID: inv.SupplierID,
		TotalCost:  inv.TotalCost,
		CreatedAt:  inv.CreatedAt,
		Lots:       make([]PurchaseLotResponse, 0, len(inv.Lots)),
	}
	for _, lot := range inv.Lots {
		resp.Lots = append(resp.Lots, toPurchaseLotResponse(&lot))
	}
	return resp
}

func toPurchaseLotResponse(lot *ledger.PurchaseLot) PurchaseLotResponse {
	return PurchaseLotResponse{
		ID:              lot.GetID(),
		ProductID:       lot.ProductID,
		PackagingUnitID: lot.PackagingUnitID,
		Quantity:        lot.Quantity,
		Multiplier:      lot.Multiplier,
		Remaining:       lot.Remaining,
		BuyPrice:        lot.BuyPrice,
		RetailPrice:     lot.RetailPrice,
		PharmacyPrice:   lot.PharmacyPrice,
		WholesalePrice:  lot.WholesalePrice,
		ExpiryDate:      lot.ExpiryDate,
	}
}

// AllocationSourceResponse describes one lot draw behind an allocation
type AllocationSourceResponse struct {
	LotID    uuid.UUID `json:"lot_id"`
	Quantity int64     `json:"quantity"`
	Drawn    int64     `json:"drawn"`
}

// SalesAllocationResponse describes one sold line
type SalesAllocationResponse struct {
	ID              uuid.UUID                  `json:"id"`
	ProductID       uuid.UUID                  `json:"product_id"`
	PackagingUnitID uuid.UUID                  `json:"packaging_unit_id"`
	Quantity        int64                      `json:"quantity"`
	Multiplier      int64                      `json:"multiplier"`
	UnitPrice       decimal.Decimal            `json:"unit_price"`
	ToReturn        int64                      `json:"to_return"`
	Sources         []AllocationSourceResponse `json:"sources"`
}

// SalesInvoiceResponse describes a sales invoice
type SalesInvoiceResponse struct {
	ID          uuid.UUID                 `json:"id"`
	Serial      string                    `json:"serial"`
	Date        time.Time                 `json:"date"`
	Channel     catalog.SalesChannel      `json:"channel"`
	CustomerID  *uuid.UUID                `json:"customer_id,omitempty"`
	TotalCost   decimal.Decimal           `json:"total_cost"`
	Offer       decimal.Decimal           `json:"offer"`
	CreatedAt   time.Time                 `json:"created_at"`
	Allocations []SalesAllocationResponse `json:"allocations"`
}

// ToSalesInvoiceResponse maps a sales invoice to its response
func ToSalesInvoiceResponse(inv *trade.SalesInvoice) SalesInvoiceResponse {
	resp := SalesInvoiceResponse{
		ID:          inv.GetID(),
		Serial:      inv.Serial,
		Date:        inv.Date,
		Channel:     inv.Channel,
		CustomerID:  inv.CustomerID,
		TotalCost:   inv.TotalCost,
		Offer:       inv.Offer,
		CreatedAt:   inv.CreatedAt,
		Allocations: make([]SalesAllocationResponse, 0, len(inv.Allocations)),
	}
	for i := range inv.Allocations {
		a := &inv.Allocations[i]
		ar := SalesAllocationResponse{
			ID:              a.GetID(),
			ProductID:       a.ProductID,
			PackagingUnitID: a.PackagingUnitID,
			Quantity:        a.Quantity,
			Multiplier:      a.Multiplier,
			UnitPrice:       a.UnitPrice,
			ToReturn:        a.ToReturn(),
		}
		for _, s := range a.Sources {
			ar.Sources = append(ar.Sources, AllocationSourceResponse{
				LotID:    s.LotID,
				Quantity: s.Quantity,
				Drawn:    s.DrawnQuantity,
			})
		}
		resp.Allocations = append(resp.Allocations, ar)
	}
	return resp
}

// ReturnedSourceResponse describes base units handed back to one lot
type ReturnedSourceResponse struct {
	LotID         uuid.UUID       `json:"lot_id"`
	Quantity      int64           `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	Loss          decimal.Decimal `json:"loss"`
}

// ReturnRecordResponse describes one returned line
type ReturnRecordResponse struct {
	ID                uuid.UUID                `json:"id"`
	SalesAllocationID uuid.UUID                `json:"sales_allocation_id"`
	ProductID         uuid.UUID                `json:"product_id"`
	PackagingUnitID   uuid.UUID                `json:"packaging_unit_id"`
	Quantity          int64                    `json:"quantity"`
	Multiplier        int64                    `json:"multiplier"`
	Amount            decimal.Decimal          `json:"amount"`
	TotalLoss         decimal.Decimal          `json:"total_loss"`
	Sources           []ReturnedSourceResponse `json:"sources"`
}

// ReturnInvoiceResponse describes a return invoice
type ReturnInvoiceResponse struct {
	ID             uuid.UUID              `json:"id"`
	Serial         string                 `json:"serial"`
	Date           time.Time              `json:"date"`
	SalesInvoiceID uuid.UUID              `json:"sales_invoice_id"`
	CustomerID     *uuid.UUID             `json:"customer_id,omitempty"`
	Reason         string                 `json:"reason"`
	TotalAmount    decimal.Decimal        `json:"total_amount"`
	TotalLoss      decimal.Decimal        `json:"total_loss"`
	CreatedAt      time.Time              `json:"created_at"`
	Records        []ReturnRecordResponse `json:"records"`
}

// ToReturnInvoiceResponse maps a return invoice to its response
func ToReturnInvoiceResponse(inv *trade.ReturnInvoice) ReturnInvoiceResponse {
	resp := ReturnInvoiceResponse{
		ID:             inv.GetID(),
		Serial:         inv.Serial,
		Date:           inv.Date,
		SalesInvoiceID: inv.SalesInvoiceID,
		CustomerID:     inv.CustomerID,
		Reason:         inv.Reason,
		TotalAmount:    inv.TotalAmount,
		TotalLoss:      inv.TotalLoss,
		CreatedAt:      inv.CreatedAt,
		Records:        make([]ReturnRecordResponse, 0, len(inv.Records)),
	}
	for i := range inv.Records {
		r := &inv.Records[i]
		rr := ReturnRecordResponse{
			ID:                r.GetID(),
			SalesAllocationID: r.SalesAllocationID,
			ProductID:         r.ProductID,
			PackagingUnitID:   r.PackagingUnitID,
			Quantity:          r.Quantity,
			Multiplier:        r.Multiplier,
			Amount:            r.Amount,
			TotalLoss:         r.TotalLoss,
		}
		for _, s := range r.Sources {
			rr.Sources = append(rr.Sources, ReturnedSourceResponse{
				LotID:         s.LotID,
				Quantity:      s.Quantity,
				PurchasePrice: s.PurchasePrice,
				SellingPrice:  s.SellingPrice,
				Loss:          s.Loss,
			})
		}
		resp.Records = append(resp.Records, rr)
	}
	return resp
}
