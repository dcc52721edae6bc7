package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config holds the configured budget constants.
type Config struct {
	MainAllocated      int64
	CAName             string
	CACeiling          int64
	CAThresholdPercent decimal.Decimal
	// CAReplenishTo is displayed next to the cash advance but does not size
	// replenishments.
	CAReplenishTo int64
}

// DefaultConfig mirrors the provincial demo budget.
func DefaultConfig() Config {
	return Config{
		MainAllocated:      2_000_000,
		CAName:             "Regular Cash Advance",
		CACeiling:          500_000,
		CAThresholdPercent: decimal.RequireFromString("0.20"),
		CAReplenishTo:      400_000,
	}
}

// Validate rejects configuration the engine cannot fold against.
func (c Config) Validate() error {
	if c.MainAllocated <= 0 {
		return fmt.Errorf("%w: main allocation must be positive", ErrConfig)
	}
	if c.CACeiling < 2 {
		return fmt.Errorf("%w: cash advance ceiling must be at least 2", ErrConfig)
	}
	if !c.CAThresholdPercent.IsPositive() || c.CAThresholdPercent.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: threshold percent must be in (0,1), got %s", ErrConfig, c.CAThresholdPercent)
	}
	if c.CAReplenishTo < 0 {
		return fmt.Errorf("%w: replenish-to cannot be negative", ErrConfig)
	}
	return nil
}

func (c Config) name(source FundSource) string {
	if source == SourceCA && c.CAName != "" {
		return c.CAName
	}
	return source.Label()
}
