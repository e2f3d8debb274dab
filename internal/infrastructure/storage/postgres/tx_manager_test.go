package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTx_SavepointNamesAreSequential(t *testing.T) {
	tx := &Tx{}
	assert.Equal(t, "sp_1", tx.nextSavepoint())
	assert.Equal(t, "sp_2", tx.nextSavepoint())
}

func TestStatementTimeoutSQL(t *testing.T) {
	assert.Equal(t, "SET LOCAL statement_timeout = '1500ms'", statementTimeoutSQL(1500*time.Millisecond))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("deduct: %w", &pgconn.PgError{Code: "40P01"})))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryable(context.Canceled))
}

func TestGetQuerier_OutsideTransaction(t *testing.T) {
	txm := &TxManager{}
	ctx := context.Background()
	assert.False(t, txm.InTransaction(ctx))
	assert.Nil(t, txm.GetTx(ctx))
}
