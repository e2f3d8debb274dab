package handlers

import (
	"github.com/gin-gonic/gin"

	"tillpoint/internal/domain/sale"
	"tillpoint/internal/infrastructure/http/v1/dto"
)

// SaleHandler serves the sale ledger.
type SaleHandler struct {
	*BaseHandler
	service *sale.Service
}

// NewSaleHandler creates a sale handler.
func NewSaleHandler(base *BaseHandler, service *sale.Service) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service}
}

// RegisterRoutes mounts the sale endpoints on rg.
func (h *SaleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.DELETE("/:id", h.Delete)
	rg.DELETE("/:id/items/:itemId", h.DeleteItem)
}

// Create posts a sale and returns it with display fields.
// POST /sales
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	created, err := h.service.CreateSale(ctx, req.ToInput(h.CompanyID(c), h.UserID(c)))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, h.service.Enrich(ctx, created))
}

// List returns the caller company's sale headers, newest first.
// GET /sales?from=&to=&limit=&offset=
func (h *SaleHandler) List(c *gin.Context) {
	var q dto.ListSalesQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.ListByCompany(c.Request.Context(), h.CompanyID(c), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get returns one sale with its lines enriched.
// GET /sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	found, err := h.service.FindByID(ctx, saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, h.service.Enrich(ctx, found))
}

// Delete removes a sale and its lines.
// DELETE /sales/:id
func (h *SaleHandler) Delete(c *gin.Context) {
	saleID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	deleted, err := h.service.DeleteSale(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Deleted(c, deleted)
}

// DeleteItem removes one line and returns the sale with recomputed totals.
// DELETE /sales/:id/items/:itemId
func (h *SaleHandler) DeleteItem(c *gin.Context) {
	saleID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.PathID(c, "itemId")
	if !ok {
		return
	}
	updated, err := h.service.DeleteSaleItem(c.Request.Context(), saleID, itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, updated)
}
