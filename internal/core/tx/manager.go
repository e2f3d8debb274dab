// Package tx provides transaction management abstractions.
// Domain services depend on Manager, not on a concrete database driver.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
// Implementations handle BEGIN, COMMIT, ROLLBACK, and nested transaction support.
//
// The active transaction travels in ctx. This is the unit of work: a routine
// that calls RunInTransaction while another transaction is already in ctx
// adopts it instead of opening its own, so the same routine works standalone
// or nested inside a larger write (sale creation, bulk variant creation).
type Manager interface {
	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	//
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// InTransaction reports whether ctx already carries a transaction.
	InTransaction(ctx context.Context) bool
}
