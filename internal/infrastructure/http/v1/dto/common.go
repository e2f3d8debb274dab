// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import "tillpoint/internal/core/id"

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any `json:"items"`
	TotalCount int `json:"totalCount"`
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
}

// IDResponse for create operations.
type IDResponse struct {
	ID id.ID `json:"id"`
}

// DeletedResponse reports whether a delete removed anything.
type DeletedResponse struct {
	Deleted bool `json:"deleted"`
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
