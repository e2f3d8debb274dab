// Package idempotency defines the key store contract behind the
// X-Idempotency-Key header.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// Status is the state of an idempotent operation.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Replay is the cached HTTP response of a completed operation.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Normalize fills defaults for records stored without status or type.
func (r *Replay) Normalize() *Replay {
	if r.StatusCode == 0 {
		r.StatusCode = http.StatusOK
	}
	if r.ContentType == "" {
		r.ContentType = "application/json"
	}
	return r
}

// Store manages idempotency keys.
type Store interface {
	// AcquireKey returns (nil, nil) when the caller now owns the key, a
	// Replay when the operation already finished, or an IDEMPOTENCY_CONFLICT
	// error while another request holds it. Reusing a key for a different
	// request is an error as well.
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*Replay, error)

	// CompleteKey stores the response of a successful operation.
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, body []byte) error

	// FailKey stores the response of a failed operation.
	FailKey(ctx context.Context, key string, statusCode int, contentType string, body []byte) error

	// CleanupExpired removes keys past their TTL.
	CleanupExpired(ctx context.Context) (int64, error)
}

// HashRequest returns the hex SHA-256 of a request body.
func HashRequest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
