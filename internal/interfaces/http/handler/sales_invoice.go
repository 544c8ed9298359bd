package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	tradeapp "github.com/pharmacy/backend/internal/application/trade"
	"github.com/pharmacy/backend/internal/interfaces/http/dto"
)

// SalesInvoiceHandler handles sales invoice API endpoints
type SalesInvoiceHandler struct {
	BaseHandler
	salesService  *tradeapp.SalesService
	returnService *tradeapp.ReturnService
}

// NewSalesInvoiceHandler creates a new SalesInvoiceHandler
func NewSalesInvoiceHandler(salesService *tradeapp.SalesService, returnService *tradeapp.ReturnService) *SalesInvoiceHandler {
	return &SalesInvoiceHandler{
		salesService:  salesService,
		returnService: returnService,
	}
}

// Create godoc
// @Summary      Create a sales invoice
// @Description  Sell stock: allocates each line against open lots oldest-first and updates product aggregates
// @Tags         sales-invoices
// @Accept       json
// @Produce      json
// @Param        X-Idempotency-Key header string false "Client request key; a repeated key is rejected as a duplicate"
// @Param        request body tradeapp.CreateSalesInvoiceRequest true "Sales invoice creation request"
// @Success      201 {object} dto.Response{data=tradeapp.SalesInvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /trade/sales-invoices [post]
func (h *SalesInvoiceHandler) Create(c *gin.Context) {
	var req tradeapp.CreateSalesInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.ActingUserID = getActingUserID(c)
	req.IdempotencyKey = getIdempotencyKey(c)

	invoice, err := h.salesService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// GetByID godoc
// @Summary      Get sales invoice by ID
// @Description  Retrieve a sales invoice with its allocations and their lot sources
// @Tags         sales-invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=tradeapp.SalesInvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /trade/sales-invoices/{id} [get]
func (h *SalesInvoiceHandler) GetByID(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.salesService.GetByID(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// GetBySerial godoc
// @Summary      Get sales invoice by serial
// @Description  Retrieve a sales invoice by its human-readable serial
// @Tags         sales-invoices
// @Produce      json
// @Param        serial path string true "Invoice serial" example(S2024051200001)
// @Success      200 {object} dto.Response{data=tradeapp.SalesInvoiceResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /trade/sales-invoices/serial/{serial} [get]
func (h *SalesInvoiceHandler) GetBySerial(c *gin.Context) {
	serial := c.Param("serial")
	if serial == "" {
		h.BadRequest(c, "Invoice serial is required")
		return
	}

	invoice, err := h.salesService.GetBySerial(c.Request.Context(), serial)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// List godoc
// @Summary      List sales invoices
// @Description  Retrieve a paginated list of sales invoices with an optional date window
// @Tags         sales-invoices
// @Produce      json
// @Param        date_from query string false "Start date (inclusive)" format(date)
// @Param        date_to query string false "End date (inclusive)" format(date)
// @Param        search query string false "Search term (serial)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" default(created_at)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(desc)
// @Success      200 {object} dto.Response{data=[]tradeapp.SalesInvoiceResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /trade/sales-invoices [get]
func (h *SalesInvoiceHandler) List(c *gin.Context) {
	req := dto.InvoiceListRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.salesService.List(c.Request.Context(), toInvoiceFilter(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ListReturns godoc
// @Summary      List returns against a sales invoice
// @Description  Retrieve the return invoices issued against one sales invoice
// @Tags         sales-invoices
// @Produce      json
// @Param        id path string true "Sales invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]tradeapp.ReturnInvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /trade/sales-invoices/{id}/returns [get]
func (h *SalesInvoiceHandler) ListReturns(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	returns, err := h.returnService.ListBySalesInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, returns)
}

// Delete godoc
// @Summary      Delete a sales invoice
// @Description  Undo a sale: deletes dependent returns first, restores every consumed lot, and refreshes aggregates
// @Tags         sales-invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /trade/sales-invoices/{id} [delete]
func (h *SalesInvoiceHandler) Delete(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	if err := h.salesService.Delete(c.Request.Context(), invoiceID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
