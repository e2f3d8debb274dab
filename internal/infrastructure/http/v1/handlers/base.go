// Package handlers provides HTTP request handlers.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"tillpoint/internal/core/apperror"
	appctx "tillpoint/internal/core/context"
	"tillpoint/internal/core/id"
	"tillpoint/internal/infrastructure/http/v1/dto"
	"tillpoint/internal/infrastructure/http/v1/middleware"
	"tillpoint/pkg/logger"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// PathID reads an id path parameter.
func (h *BaseHandler) PathID(c *gin.Context, name string) (id.ID, bool) {
	v := c.Param(name)
	if id.IsNil(v) {
		h.Error(c, apperror.NewRequired(name))
		return "", false
	}
	return v, true
}

// Error registers error on Gin context and aborts request.
// The JSON response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// CompanyID returns the caller's company.
func (h *BaseHandler) CompanyID(c *gin.Context) id.ID {
	return appctx.GetCompanyID(c.Request.Context())
}

// UserID returns the calling user.
func (h *BaseHandler) UserID(c *gin.Context) id.ID {
	return appctx.GetUserID(c.Request.Context())
}

// completeIdempotency stores the response for replay (best-effort).
func (h *BaseHandler) completeIdempotency(c *gin.Context, statusCode int, contentType string, body []byte) {
	key, store, ok := middleware.IdempotencyKey(c)
	if !ok {
		return
	}
	if err := store.CompleteKey(c.Request.Context(), key, statusCode, contentType, body); err != nil {
		logger.Warn(c.Request.Context(), "failed to store idempotent response", "error", err)
	}
}

// respond writes data as JSON and records it for idempotent replay.
func (h *BaseHandler) respond(c *gin.Context, statusCode int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}
	h.completeIdempotency(c, statusCode, "application/json", body)
	c.Data(statusCode, "application/json; charset=utf-8", body)
}

// Created sends 201 with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	h.respond(c, http.StatusCreated, data)
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	h.respond(c, http.StatusOK, data)
}

// Deleted sends 200 with the delete outcome.
func (h *BaseHandler) Deleted(c *gin.Context, deleted bool) {
	h.respond(c, http.StatusOK, dto.DeletedResponse{Deleted: deleted})
}

// NoContent sends 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	// 204 must replay as 204 with empty body.
	h.completeIdempotency(c, http.StatusNoContent, "", nil)
	c.Status(http.StatusNoContent)
}
