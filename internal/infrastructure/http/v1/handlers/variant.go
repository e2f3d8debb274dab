package handlers

import (
	"github.com/gin-gonic/gin"

	"tillpoint/internal/domain/variant"
	"tillpoint/internal/infrastructure/http/v1/dto"
)

// VariantHandler serves the variant registry.
type VariantHandler struct {
	*BaseHandler
	service *variant.Service
}

// NewVariantHandler creates a variant handler.
func NewVariantHandler(base *BaseHandler, service *variant.Service) *VariantHandler {
	return &VariantHandler{BaseHandler: base, service: service}
}

// RegisterRoutes mounts the variant endpoints. products is the
// /company-products group, variants the /variants group.
func (h *VariantHandler) RegisterRoutes(products, variants *gin.RouterGroup) {
	products.POST("/:id/variants", h.CreateBulk)
	products.GET("/:id/variants", h.ListByProduct)

	variants.GET("/:id", h.Get)
	variants.PATCH("/:id", h.Update)
	variants.DELETE("/:id", h.Delete)
}

// CreateBulk creates variants of a company product in one transaction.
// POST /company-products/:id/variants
func (h *VariantHandler) CreateBulk(c *gin.Context) {
	productID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateVariantsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	created, err := h.service.CreateBulk(c.Request.Context(), productID, req.ToSpecs())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, created)
}

// ListByProduct returns a product's variants, default first.
// GET /company-products/:id/variants
func (h *VariantHandler) ListByProduct(c *gin.Context) {
	productID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	vs, err := h.service.FindByCompanyProductID(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, vs)
}

// Get returns one variant.
// GET /variants/:id
func (h *VariantHandler) Get(c *gin.Context) {
	variantID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	v, err := h.service.FindByID(c.Request.Context(), variantID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, v)
}

// Update applies a partial update.
// PATCH /variants/:id
func (h *VariantHandler) Update(c *gin.Context) {
	variantID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateVariantRequest
	if !h.BindJSON(c, &req) {
		return
	}
	v, err := h.service.Update(c.Request.Context(), variantID, req.ToPatch())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, v)
}

// Delete removes a variant.
// DELETE /variants/:id
func (h *VariantHandler) Delete(c *gin.Context) {
	variantID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	deleted, err := h.service.Delete(c.Request.Context(), variantID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Deleted(c, deleted)
}
