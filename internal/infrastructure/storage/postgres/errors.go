package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"tillpoint/internal/core/apperror"
)

// SQLSTATE codes the repositories translate.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// IsRetryable reports whether the whole transaction may be re-run: the
// server aborted it for a serialization conflict or a deadlock.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
}

// MapError converts known PostgreSQL constraint violations into AppErrors.
// Anything else is returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		return apperror.NewConflict("unique constraint violated").
			WithDetail("constraint", pgErr.ConstraintName).
			WithDetail("table", pgErr.TableName).
			WithCause(err)
	case pgForeignKeyViolation:
		return apperror.NewConflict("referenced row is missing or still in use").
			WithDetail("constraint", pgErr.ConstraintName).
			WithDetail("table", pgErr.TableName).
			WithCause(err)
	}
	return err
}
