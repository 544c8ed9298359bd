package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ledgerapp "github.com/pharmacy/backend/internal/application/ledger"
)

// StockHandler handles stock availability API endpoints
type StockHandler struct {
	BaseHandler
	stockService      *ledgerapp.StockService
	defaultExpiryDays int
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(stockService *ledgerapp.StockService, defaultExpiryDays int) *StockHandler {
	return &StockHandler{
		stockService:      stockService,
		defaultExpiryDays: defaultExpiryDays,
	}
}

// GetAvailability godoc
// @Summary      Get stock availability for a product
// @Description  Retrieve a product's total remaining stock with a per-lot breakdown
// @Tags         stock
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.StockAvailability}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /stock/availability/{id} [get]
func (h *StockHandler) GetAvailability(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	availability, err := h.stockService.GetAvailability(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, availability)
}

// ListExpiring godoc
// @Summary      List expiring lots
// @Description  Retrieve lots with remaining stock whose expiry date falls inside the given window
// @Tags         stock
// @Produce      json
// @Param        days query int false "Window in days from today" default(90)
// @Success      200 {object} dto.Response{data=[]ledgerapp.ExpiringLot}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /stock/expiring [get]
func (h *StockHandler) ListExpiring(c *gin.Context) {
	days := h.defaultExpiryDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.BadRequest(c, "days must be a positive integer")
			return
		}
		days = parsed
	}

	lots, err := h.stockService.ListExpiring(c.Request.Context(), days)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, lots)
}
