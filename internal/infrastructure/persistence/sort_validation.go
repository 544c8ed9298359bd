package persistence

import (
	"strings"

	"gorm.io/gorm"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// ValidateSortOrder normalizes the sort direction, defaulting to DESC so
// list endpoints show the newest records first.
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField checks the requested column against a whitelist.
// Anything not whitelisted falls back to defaultField, which keeps
// order_by out of reach for SQL injection.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// SortScope orders the query by a whitelisted column in the filter's
// direction.
func SortScope(filter shared.Filter, allowed map[string]bool, defaultField string) func(*gorm.DB) *gorm.DB {
	return func(query *gorm.DB) *gorm.DB {
		field := ValidateSortField(filter.OrderBy, allowed, defaultField)
		return query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	}
}

// PageScope applies the filter's offset and limit, a no-op when the
// filter is unpaged.
func PageScope(filter shared.Filter) func(*gorm.DB) *gorm.DB {
	return func(query *gorm.DB) *gorm.DB {
		if !filter.Paged() {
			return query
		}
		return query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
}

// ProductSortFields are the columns products may be listed by.
var ProductSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"name":            true,
	"barcode":         true,
	"min_stock":       true,
	"total_remaining": true,
}

// PackagingUnitSortFields are the columns packaging units may be listed by.
var PackagingUnitSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
}

// UnitConversionSortFields are the columns unit conversions may be listed by.
var UnitConversionSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"product_id": true,
	"multiplier": true,
	"scan_code":  true,
}

// PurchaseLotSortFields are the columns purchase lots may be listed by.
var PurchaseLotSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"product_id":   true,
	"invoice_date": true,
	"expiry_date":  true,
	"remaining":    true,
	"buy_price":    true,
}

// InvoiceSortFields are the header columns shared by the purchase and
// sales invoice tables.
var InvoiceSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"serial":     true,
	"date":       true,
	"total_cost": true,
}

// ReturnInvoiceSortFields are the columns return invoices may be listed
// by. Returns carry a loss figure instead of a cost.
var ReturnInvoiceSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"serial":       true,
	"date":         true,
	"total_amount": true,
	"total_loss":   true,
}
