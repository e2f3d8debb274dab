package numerator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Generator generates sequential document numbers.
type Generator interface {
	// GetNextNumber returns the next number, formatted PREFIX-YEAR-XXXXX
	// (e.g. S-2026-00001) or PREFIX-XXXXX without the year.
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)
}

// Key builds the sequence key for cfg and period.
func Key(cfg Config, period time.Time) string {
	base := cfg.Prefix
	if cfg.Scope != "" {
		base = cfg.Scope + ":" + cfg.Prefix
	}
	switch cfg.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%s", base, period.Format("2006_01"))
	case "year":
		return fmt.Sprintf("%s_%s", base, period.Format("2006"))
	default:
		return base
	}
}

// Format renders num per cfg.
func Format(cfg Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}
	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}

// ParseNumber extracts the numeric part of a formatted number.
// Returns -1 if parsing fails.
func ParseNumber(formatted string) int64 {
	i := strings.LastIndexByte(formatted, '-')
	if i < 0 {
		return -1
	}
	num, err := strconv.ParseInt(formatted[i+1:], 10, 64)
	if err != nil {
		return -1
	}
	return num
}
