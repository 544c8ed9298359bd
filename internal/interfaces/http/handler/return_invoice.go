package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	tradeapp "github.com/pharmacy/backend/internal/application/trade"
)

// ReturnInvoiceHandler handles return invoice API endpoints
type ReturnInvoiceHandler struct {
	BaseHandler
	returnService *tradeapp.ReturnService
}

// NewReturnInvoiceHandler creates a new ReturnInvoiceHandler
func NewReturnInvoiceHandler(returnService *tradeapp.ReturnService) *ReturnInvoiceHandler {
	return &ReturnInvoiceHandler{
		returnService: returnService,
	}
}

// Create godoc
// @Summary      Create a return invoice
// @Description  Return sold stock against a sales invoice, restoring the original lots source by source
// @Tags         return-invoices
// @Accept       json
// @Produce      json
// @Param        X-Idempotency-Key header string false "Client request key; a repeated key is rejected as a duplicate"
// @Param        request body tradeapp.CreateReturnInvoiceRequest true "Return invoice creation request"
// @Success      201 {object} dto.Response{data=tradeapp.ReturnInvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /trade/return-invoices [post]
func (h *ReturnInvoiceHandler) Create(c *gin.Context) {
	var req tradeapp.CreateReturnInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.ActingUserID = getActingUserID(c)
	req.IdempotencyKey = getIdempotencyKey(c)

	invoice, err := h.returnService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// GetByID godoc
// @Summary      Get return invoice by ID
// @Description  Retrieve a return invoice with its records
// @Tags         return-invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=tradeapp.ReturnInvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /trade/return-invoices/{id} [get]
func (h *ReturnInvoiceHandler) GetByID(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.returnService.GetByID(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// GetBySerial godoc
// @Summary      Get return invoice by serial
// @Description  Retrieve a return invoice by its human-readable serial
// @Tags         return-invoices
// @Produce      json
// @Param        serial path string true "Invoice serial" example(R2024051200001)
// @Success      200 {object} dto.Response{data=tradeapp.ReturnInvoiceResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /trade/return-invoices/serial/{serial} [get]
func (h *ReturnInvoiceHandler) GetBySerial(c *gin.Context) {
	serial := c.Param("serial")
	if serial == "" {
		h.BadRequest(c, "Invoice serial is required")
		return
	}

	invoice, err := h.returnService.GetBySerial(c.Request.Context(), serial)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Delete godoc
// @Summary      Delete a return invoice
// @Description  Undo a return: re-consumes the restored stock from the original sources
// @Tags         return-invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /trade/return-invoices/{id} [delete]
func (h *ReturnInvoiceHandler) Delete(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	if err := h.returnService.Delete(c.Request.Context(), invoiceID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
