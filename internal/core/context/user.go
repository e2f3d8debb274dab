// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// Principal is the already-authenticated caller, supplied by the upstream
// auth gateway. The core trusts these values and performs no authorization.
type Principal struct {
	CompanyID string
	UserID    string
	Role      string
}

type principalKey struct{}

// WithPrincipal adds Principal to context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// GetPrincipal returns Principal from context.
func GetPrincipal(ctx context.Context) *Principal {
	if v, ok := ctx.Value(principalKey{}).(*Principal); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if p := GetPrincipal(ctx); p != nil {
		return p.UserID
	}
	return ""
}

// GetCompanyID returns company ID from context or empty string.
func GetCompanyID(ctx context.Context) string {
	if p := GetPrincipal(ctx); p != nil {
		return p.CompanyID
	}
	return ""
}
