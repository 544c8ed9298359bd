package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	tradeapp "github.com/pharmacy/backend/internal/application/trade"
	"github.com/pharmacy/backend/internal/interfaces/http/dto"
)

// PurchaseInvoiceHandler handles purchase invoice API endpoints
type PurchaseInvoiceHandler struct {
	BaseHandler
	purchaseService *tradeapp.PurchaseService
}

// NewPurchaseInvoiceHandler creates a new PurchaseInvoiceHandler
func NewPurchaseInvoiceHandler(purchaseService *tradeapp.PurchaseService) *PurchaseInvoiceHandler {
	return &PurchaseInvoiceHandler{
		purchaseService: purchaseService,
	}
}

// Create godoc
// @Summary      Create a purchase invoice
// @Description  Receive stock: creates the invoice, one lot per line, and updates product aggregates
// @Tags         purchase-invoices
// @Accept       json
// @Produce      json
// @Param        X-Idempotency-Key header string false "Client request key; a repeated key is rejected as a duplicate"
// @Param        request body tradeapp.CreatePurchaseInvoiceRequest true "Purchase invoice creation request"
// @Success      201 {object} dto.Response{data=tradeapp.PurchaseInvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /trade/purchase-invoices [post]
func (h *PurchaseInvoiceHandler) Create(c *gin.Context) {
	var req tradeapp.CreatePurchaseInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.ActingUserID = getActingUserID(c)
	req.IdempotencyKey = getIdempotencyKey(c)

	invoice, err := h.purchaseService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// GetByID godoc
// @Summary      Get purchase invoice by ID
// @Description  Retrieve a purchase invoice with its lots
// @Tags         purchase-invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=tradeapp.PurchaseInvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /trade/purchase-invoices/{id} [get]
func (h *PurchaseInvoiceHandler) GetByID(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.purchaseService.GetByID(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// GetBySerial godoc
// @Summary      Get purchase invoice by serial
// @Description  Retrieve a purchase invoice by its human-readable serial
// @Tags         purchase-invoices
// @Produce      json
// @Param        serial path string true "Invoice serial" example(P2024051200001)
// @Success      200 {object} dto.Response{data=tradeapp.PurchaseInvoiceResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /trade/purchase-invoices/serial/{serial} [get]
func (h *PurchaseInvoiceHandler) GetBySerial(c *gin.Context) {
	serial := c.Param("serial")
	if serial == "" {
		h.BadRequest(c, "Invoice serial is required")
		return
	}

	invoice, err := h.purchaseService.GetBySerial(c.Request.Context(), serial)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// List godoc
// @Summary      List purchase invoices
// @Description  Retrieve a paginated list of purchase invoices with an optional date window
// @Tags         purchase-invoices
// @Produce      json
// @Param        date_from query string false "Start date (inclusive)" format(date)
// @Param        date_to query string false "End date (inclusive)" format(date)
// @Param        search query string false "Search term (serial)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" default(created_at)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(desc)
// @Success      200 {object} dto.Response{data=[]tradeapp.PurchaseInvoiceResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /trade/purchase-invoices [get]
func (h *PurchaseInvoiceHandler) List(c *gin.Context) {
	req := dto.InvoiceListRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.purchaseService.List(c.Request.Context(), toInvoiceFilter(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Delete godoc
// @Summary      Delete a purchase invoice
// @Description  Undo a purchase: removes the invoice and its lots when no lot has been consumed
// @Tags         purchase-invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /trade/purchase-invoices/{id} [delete]
func (h *PurchaseInvoiceHandler) Delete(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	if err := h.purchaseService.Delete(c.Request.Context(), invoiceID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
