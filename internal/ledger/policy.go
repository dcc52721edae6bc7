package ledger

import "github.com/shopspring/decimal"

// PostAuditLimit is the replenishment amount above which an external
// post-audit is required.
const PostAuditLimit int64 = 1_000_000

// ReplenishNote is written on every synthetic replenishment.
const ReplenishNote = "Auto-replenishment to bring balance above threshold."

var replenishRatio = decimal.RequireFromString("0.5")

// Policy decides when the cash advance is topped up.
//
// The trigger looks only at precommitted amounts against the ceiling and the
// top-up is always half the ceiling. ReplenishTo is carried for display.
type Policy struct {
	Ceiling          int64
	ThresholdPercent decimal.Decimal
	ReplenishTo      int64
}

// NewPolicy builds the cash advance policy from cfg.
func NewPolicy(cfg Config) Policy {
	return Policy{
		Ceiling:          cfg.CACeiling,
		ThresholdPercent: cfg.CAThresholdPercent,
		ReplenishTo:      cfg.CAReplenishTo,
	}
}

// Threshold returns ceiling × thresholdPercent.
func (p Policy) Threshold() decimal.Decimal {
	return decimal.NewFromInt(p.Ceiling).Mul(p.ThresholdPercent)
}

// ShouldReplenish reports whether ceiling − precommitted falls strictly below
// the threshold.
func (p Policy) ShouldReplenish(precommitted int64) bool {
	remaining := decimal.NewFromInt(p.Ceiling - precommitted)
	return remaining.LessThan(p.Threshold())
}

// ReplenishAmount is the fixed top-up of half the ceiling.
func (p Policy) ReplenishAmount() int64 {
	return decimal.NewFromInt(p.Ceiling).Mul(replenishRatio).IntPart()
}

// RequiresPostAudit reports whether a replenishment of amount must be
// post-audited.
func RequiresPostAudit(amount int64) bool {
	return amount > PostAuditLimit
}
