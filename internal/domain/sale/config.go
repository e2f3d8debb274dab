package sale

import (
	"fmt"
	"strings"

	corenumerator "tillpoint/internal/core/numerator"
)

// StockPolicy decides what a sale does when active lots cannot cover a
// product line.
type StockPolicy string

const (
	// StockPolicyLenient records the sale and logs an inventory shortfall.
	StockPolicyLenient StockPolicy = "lenient"
	// StockPolicyStrict fails the sale with INSUFFICIENT_STOCK and rolls back.
	StockPolicyStrict StockPolicy = "strict"
)

// ParseStockPolicy accepts "lenient" or "strict" (case-insensitive).
// Empty means lenient.
func ParseStockPolicy(s string) (StockPolicy, error) {
	switch StockPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StockPolicyLenient:
		return StockPolicyLenient, nil
	case StockPolicyStrict:
		return StockPolicyStrict, nil
	}
	return "", fmt.Errorf("unknown stock policy %q", s)
}

// Config holds sale ledger settings.
type Config struct {
	StockPolicy StockPolicy

	// Numbering configures receipt numbers. Scope is set per company.
	Numbering corenumerator.Config
}

// DefaultConfig returns the lenient policy and S-YYYY-NNNNN receipt numbers.
func DefaultConfig() Config {
	return Config{
		StockPolicy: StockPolicyLenient,
		Numbering:   corenumerator.DefaultConfig("S"),
	}
}
