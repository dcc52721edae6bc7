package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPolicyThresholdIsStrict(t *testing.T) {
	p := NewPolicy(DefaultConfig())

	require.Equal(t, "100000", p.Threshold().String())
	require.False(t, p.ShouldReplenish(0))
	require.False(t, p.ShouldReplenish(400_000), "remaining equal to threshold does not trigger")
	require.True(t, p.ShouldReplenish(400_001))
	require.True(t, p.ShouldReplenish(420_000))
	require.True(t, p.ShouldReplenish(600_000))
}

func TestPolicyReplenishAmountIgnoresReplenishTo(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CAReplenishTo = 123_456
	p := NewPolicy(cfg)
	require.EqualValues(t, 250_000, p.ReplenishAmount())

	cfg.CACeiling = 3_000_001
	require.EqualValues(t, 1_500_000, NewPolicy(cfg).ReplenishAmount())
}

func TestRequiresPostAudit(t *testing.T) {
	require.False(t, RequiresPostAudit(PostAuditLimit))
	require.True(t, RequiresPostAudit(PostAuditLimit+1))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.CAThresholdPercent = decimal.NewFromInt(1)
	require.ErrorIs(t, cfg.Validate(), ErrConfig)

	cfg = DefaultConfig()
	cfg.MainAllocated = 0
	require.ErrorIs(t, cfg.Validate(), ErrConfig)

	cfg = DefaultConfig()
	cfg.CACeiling = 1
	require.ErrorIs(t, cfg.Validate(), ErrConfig)
}
