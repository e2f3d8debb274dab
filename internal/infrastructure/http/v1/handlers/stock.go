package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/domain/stock"
	"tillpoint/internal/domain/variant"
	"tillpoint/internal/infrastructure/export"
	"tillpoint/internal/infrastructure/http/v1/dto"
)

// StockHandler serves the stock ledger.
type StockHandler struct {
	*BaseHandler
	stock    *stock.Service
	variants *variant.Service
}

// NewStockHandler creates a stock handler. Intake goes through the variant
// registry so a variant's first lot becomes its active stock.
func NewStockHandler(base *BaseHandler, stockService *stock.Service, variants *variant.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, stock: stockService, variants: variants}
}

// RegisterRoutes mounts the stock endpoints. variants is the /variants
// group, lots the /stock-lots group.
func (h *StockHandler) RegisterRoutes(variants, lots *gin.RouterGroup) {
	variants.POST("/:id/stock", h.Intake)
	variants.GET("/:id/stock", h.List)
	variants.GET("/:id/stock/available", h.Available)
	variants.GET("/:id/stock/export", h.Export)

	lots.PATCH("/:id", h.Update)
	lots.POST("/:id/deactivate", h.Deactivate)
	lots.DELETE("/:id", h.Delete)
}

// Intake receives a new lot.
// POST /variants/:id/stock
func (h *StockHandler) Intake(c *gin.Context) {
	variantID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.IntakeRequest
	if !h.BindJSON(c, &req) {
		return
	}
	lot, err := h.variants.IntakeStock(c.Request.Context(), variantID, req.ToInput(variantID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, lot)
}

// List returns a variant's lots in FIFO order.
// GET /variants/:id/stock?activeOnly=true
func (h *StockHandler) List(c *gin.Context) {
	variantID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	activeOnly := false
	if raw := c.Query("activeOnly"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("activeOnly must be a boolean").WithDetail("field", "activeOnly"))
			return
		}
		activeOnly = v
	}
	lots, err := h.stock.ListByVariant(c.Request.Context(), variantID, activeOnly)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, lots)
}

// Available returns the active quantity of a variant.
// GET /variants/:id/stock/available
func (h *StockHandler) Available(c *gin.Context) {
	variantID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	n, err := h.stock.TotalAvailable(c.Request.Context(), variantID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.AvailableResponse{VariantID: variantID, Available: n})
}

// Export downloads the variant's stock valuation as xlsx.
// GET /variants/:id/stock/export
func (h *StockHandler) Export(c *gin.Context) {
	variantID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	v, err := h.variants.FindByID(ctx, variantID)
	if err != nil {
		h.Error(c, err)
		return
	}
	valuation, err := h.stock.Valuation(ctx, variantID)
	if err != nil {
		h.Error(c, err)
		return
	}

	title := v.Name
	if title == "" {
		title = "Variant " + v.ID
	}
	var buf bytes.Buffer
	if err := export.StockValuationXLSX(&buf, title, valuation); err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="stock-%s.xlsx"`, variantID))
	c.Data(http.StatusOK, export.XLSXContentType, buf.Bytes())
}

// Update applies a partial lot update.
// PATCH /stock-lots/:id
func (h *StockHandler) Update(c *gin.Context) {
	lotID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateLotRequest
	if !h.BindJSON(c, &req) {
		return
	}
	lot, err := h.stock.Update(c.Request.Context(), lotID, req.ToPatch())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, lot)
}

// Deactivate takes a lot out of available stock.
// POST /stock-lots/:id/deactivate
func (h *StockHandler) Deactivate(c *gin.Context) {
	lotID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	if err := h.stock.Deactivate(c.Request.Context(), lotID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Delete removes a lot.
// DELETE /stock-lots/:id
func (h *StockHandler) Delete(c *gin.Context) {
	lotID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	deleted, err := h.stock.Delete(c.Request.Context(), lotID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Deleted(c, deleted)
}
