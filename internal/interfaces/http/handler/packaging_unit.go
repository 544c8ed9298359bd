package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	catalogapp "github.com/pharmacy/backend/internal/application/catalog"
	"github.com/pharmacy/backend/internal/interfaces/http/dto"
)

// PackagingUnitHandler handles packaging unit and conversion API endpoints
type PackagingUnitHandler struct {
	BaseHandler
	catalogService *catalogapp.Service
}

// NewPackagingUnitHandler creates a new PackagingUnitHandler
func NewPackagingUnitHandler(catalogService *catalogapp.Service) *PackagingUnitHandler {
	return &PackagingUnitHandler{
		catalogService: catalogService,
	}
}

// Create godoc
// @Summary      Create a packaging unit
// @Description  Create a named unit of measure (box, strip, tablet)
// @Tags         packaging-units
// @Accept       json
// @Produce      json
// @Param        request body catalogapp.CreatePackagingUnitRequest true "Packaging unit creation request"
// @Success      201 {object} dto.Response{data=catalogapp.PackagingUnitResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /catalog/packaging-units [post]
func (h *PackagingUnitHandler) Create(c *gin.Context) {
	var req catalogapp.CreatePackagingUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	unit, err := h.catalogService.CreatePackagingUnit(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, unit)
}

// List godoc
// @Summary      List packaging units
// @Description  Retrieve a paginated list of packaging units
// @Tags         packaging-units
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]catalogapp.PackagingUnitResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /catalog/packaging-units [get]
func (h *PackagingUnitHandler) List(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.catalogService.ListPackagingUnits(c.Request.Context(), toFilter(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// DefineConversion godoc
// @Summary      Define a unit conversion
// @Description  Bind a packaging unit to a product with a base-unit multiplier and optional scan code
// @Tags         conversions
// @Accept       json
// @Produce      json
// @Param        request body catalogapp.DefineConversionRequest true "Conversion definition request"
// @Success      201 {object} dto.Response{data=catalogapp.ConversionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /catalog/conversions [post]
func (h *PackagingUnitHandler) DefineConversion(c *gin.Context) {
	var req catalogapp.DefineConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	conversion, err := h.catalogService.DefineConversion(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, conversion)
}

// ListConversions godoc
// @Summary      List a product's conversions
// @Description  Retrieve a product's packaging bindings, smallest multiplier first
// @Tags         conversions
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]catalogapp.ConversionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /catalog/products/{id}/conversions [get]
func (h *PackagingUnitHandler) ListConversions(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	conversions, err := h.catalogService.ListConversions(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, conversions)
}

// ResolveScanCode godoc
// @Summary      Resolve a scan code
// @Description  Resolve a barcode to its product and packaging unit binding
// @Tags         conversions
// @Produce      json
// @Param        code path string true "Scan code"
// @Success      200 {object} dto.Response{data=catalogapp.ConversionResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /catalog/conversions/scan/{code} [get]
func (h *PackagingUnitHandler) ResolveScanCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		h.BadRequest(c, "Scan code is required")
		return
	}

	conversion, err := h.catalogService.ResolveScanCode(c.Request.Context(), code)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, conversion)
}

// DeleteConversion godoc
// @Summary      Delete a unit conversion
// @Description  Remove a packaging binding from a product
// @Tags         conversions
// @Produce      json
// @Param        id path string true "Conversion ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /catalog/conversions/{id} [delete]
func (h *PackagingUnitHandler) DeleteConversion(c *gin.Context) {
	conversionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid conversion ID format")
		return
	}

	if err := h.catalogService.DeleteConversion(c.Request.Context(), conversionID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
