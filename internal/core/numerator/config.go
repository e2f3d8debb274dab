// Package numerator provides the contract for human-readable document numbers.
package numerator

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict bumps the sequence row for every number. Inside a
	// transaction the number is released again on rollback, so there are no
	// gaps. Used for sale receipts.
	StrategyStrict Strategy = iota

	// StrategyCached reserves ranges of numbers in memory. Faster, but a
	// restart leaves gaps.
	StrategyCached
)

// Options configuration for number generation.
type Options struct {
	Strategy Strategy
	// RangeSize is the number of values reserved at once by StrategyCached.
	// Default is 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "S").
	Prefix string

	// Scope separates independent sequences sharing a prefix, e.g. one
	// sequence per company. Empty means global.
	Scope string

	// IncludeYear adds year to the number
	IncludeYear bool

	// PadWidth is the minimum number width (default 5)
	PadWidth int

	// ResetPeriod: "year", "month", "never"
	ResetPeriod string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}
