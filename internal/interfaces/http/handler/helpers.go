package handler

import (
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/interfaces/http/dto"
)

// toFilter converts list request parameters to a repository filter
func toFilter(req dto.ListRequest) shared.Filter {
	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}
	if req.OrderBy != "" {
		filter.OrderBy = req.OrderBy
	}
	if req.OrderDir != "" {
		filter.OrderDir = req.OrderDir
	}
	filter.Search = req.Search
	return filter
}

// toInvoiceFilter converts invoice list parameters, carrying the optional
// date window through the filter map
func toInvoiceFilter(req dto.InvoiceListRequest) shared.Filter {
	filter := toFilter(req.ListRequest)
	if req.DateFrom != "" {
		filter.Filters["date_from"] = req.DateFrom
	}
	if req.DateTo != "" {
		filter.Filters["date_to"] = req.DateTo
	}
	return filter
}
