// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// MoneyScale is the number of decimal places stored for amounts, prices and
// percentages (NUMERIC(14,2)).
const MoneyScale = 2

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

var hundred = decimal.NewFromInt(100)

// LineAmount returns quantity × unitPrice.
func LineAmount(quantity int, unitPrice Money) Money {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// PercentOf returns amount × percent / 100.
func PercentOf(amount, percent Money) Money {
	return amount.Mul(percent).Div(hundred)
}

// RoundMoney rounds to MoneyScale, half away from zero, as PostgreSQL does.
func RoundMoney(m Money) Money {
	return m.Round(MoneyScale)
}

// FitsScale reports whether m is stored without rounding.
func FitsScale(m Money) bool {
	return m.Equal(RoundMoney(m))
}

// ValidPercent reports whether p lies in [0, 100].
func ValidPercent(p Money) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundred)
}
