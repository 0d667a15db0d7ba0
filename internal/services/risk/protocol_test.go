package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Butchman2000/Trade-Model-Consideration/internal/domain"
)

func fixedProtocol(equity int64, now time.Time) *Protocol {
	p := New(nil, decimal.NewFromInt(equity))
	p.now = func() time.Time { return now }
	return p
}

func TestTierAssignment(t *testing.T) {
	require.Equal(t, domain.TierLow, New(nil, decimal.NewFromInt(1500)).Tier())
	require.Equal(t, domain.TierRetail, New(nil, decimal.NewFromInt(10000)).Tier())
	require.Equal(t, domain.TierPro, New(nil, decimal.NewFromInt(50000)).Tier())
}

func TestValidateTradeRequestScaledLimits(t *testing.T) {
	p := New(nil, decimal.NewFromInt(10000)) // retail: 20% cap

	// High confidence keeps the full tier cap.
	require.NoError(t, p.ValidateTradeRequest(domain.ConfidenceHigh, decimal.NewFromFloat(0.15)))
	err := p.ValidateTradeRequest(domain.ConfidenceHigh, decimal.NewFromFloat(0.25))
	require.ErrorIs(t, err, ErrRiskDenied)

	// Medium confidence scales the cap to 13%.
	require.NoError(t, p.ValidateTradeRequest(domain.ConfidenceMedium, decimal.NewFromFloat(0.13)))
	require.ErrorIs(t, p.ValidateTradeRequest(domain.ConfidenceMedium, decimal.NewFromFloat(0.14)), ErrRiskDenied)

	// Unclassified tags fail small: 5% cap.
	require.NoError(t, p.ValidateTradeRequest(domain.ConfidenceUnclassified, decimal.NewFromFloat(0.05)))
	require.ErrorIs(t, p.ValidateTradeRequest(domain.ConfidenceUnclassified, decimal.NewFromFloat(0.06)), ErrRiskDenied)
}

func TestPerTradeLossFreezes(t *testing.T) {
	now := time.Date(2026, 4, 9, 14, 33, 0, 0, time.UTC)
	p := fixedProtocol(10000, now)

	err := p.RecordTrade(decimal.NewFromFloat(-0.02), decimal.NewFromFloat(0.05),
		TradeEntry, OperationPrimary, domain.ConfidenceHigh)
	require.ErrorIs(t, err, ErrExecutionFrozen)
	require.True(t, p.Frozen())

	// Frozen denies every pre-execution check until the daily reset.
	require.ErrorIs(t, p.ValidateTradeRequest(domain.ConfidenceHigh, decimal.NewFromFloat(0.01)), ErrExecutionFrozen)

	p.ResetDailyRisk()
	require.False(t, p.Frozen())
	require.NoError(t, p.ValidateTradeRequest(domain.ConfidenceHigh, decimal.NewFromFloat(0.01)))
}

func TestDailyLossFreezes(t *testing.T) {
	now := time.Date(2026, 4, 9, 14, 33, 0, 0, time.UTC)
	p := fixedProtocol(10000, now)

	// Three losses of 1.5% stay under the per-trade limit but push the
	// daily total past 4%.
	loss := decimal.NewFromFloat(-0.015)
	size := decimal.NewFromFloat(0.05)

	require.NoError(t, p.RecordTrade(loss, size, TradeExit, OperationAdjustment, domain.ConfidenceHigh))
	require.NoError(t, p.RecordTrade(loss, size, TradeExit, OperationAdjustment, domain.ConfidenceHigh))
	err := p.RecordTrade(loss, size, TradeExit, OperationAdjustment, domain.ConfidenceHigh)
	require.ErrorIs(t, err, ErrExecutionFrozen)
	require.True(t, p.Frozen())
}

func TestThrottleModeAdvisesReducedSizing(t *testing.T) {
	now := time.Date(2026, 4, 9, 14, 33, 0, 0, time.UTC)
	p := fixedProtocol(10000, now)

	loss := decimal.NewFromFloat(-0.014)
	size := decimal.NewFromFloat(0.05)

	require.NoError(t, p.RecordTrade(loss, size, TradeExit, OperationAdjustment, domain.ConfidenceHigh))
	require.False(t, p.ShouldThrottle())
	require.NoError(t, p.RecordTrade(loss, size, TradeExit, OperationAdjustment, domain.ConfidenceHigh))

	// Daily total -2.8% crossed the 2.5% trigger without freezing.
	require.True(t, p.ShouldThrottle())
	require.False(t, p.Frozen())

	p.ResetDailyRisk()
	require.False(t, p.ShouldThrottle())
}

func TestEntryFrequencyLock(t *testing.T) {
	now := time.Date(2026, 4, 9, 14, 33, 0, 0, time.UTC)
	p := fixedProtocol(50000, now) // pro: 4 entries per hour

	gain := decimal.NewFromFloat(0.001)
	size := decimal.NewFromFloat(0.05)

	for i := 0; i < 4; i++ {
		require.NoError(t, p.RecordTrade(gain, size, TradeEntry, OperationPrimary, domain.ConfidenceHigh))
	}

	err := p.RecordTrade(gain, size, TradeEntry, OperationPrimary, domain.ConfidenceHigh)
	require.ErrorIs(t, err, ErrExecutionFrozen)

	st := p.Status()
	require.True(t, st.ExecutionFrozen)
	require.True(t, st.LockedDueToFreq)
}

func TestAdjustmentsExemptFromFrequencyLock(t *testing.T) {
	now := time.Date(2026, 4, 9, 14, 33, 0, 0, time.UTC)
	p := fixedProtocol(50000, now)

	gain := decimal.NewFromFloat(0.001)
	size := decimal.NewFromFloat(0.05)

	// Far more adjustments than the hourly entry cap, none of them counts.
	for i := 0; i < 10; i++ {
		require.NoError(t, p.RecordTrade(gain, size, TradeEntry, OperationAdjustment, domain.ConfidenceHigh))
	}
	require.False(t, p.Frozen())
	require.Equal(t, 0, p.Status().TradesLastHour)
}

func TestFrozenBlocksPrimaryEntriesButNotExits(t *testing.T) {
	now := time.Date(2026, 4, 9, 14, 33, 0, 0, time.UTC)
	p := fixedProtocol(10000, now)

	require.ErrorIs(t, p.RecordTrade(decimal.NewFromFloat(-0.02), decimal.NewFromFloat(0.05),
		TradeEntry, OperationPrimary, domain.ConfidenceHigh), ErrExecutionFrozen)

	before := p.Status().TradesToday

	// Primary entries are refused outright and leave no history record.
	err := p.RecordTrade(decimal.NewFromFloat(0.001), decimal.NewFromFloat(0.05),
		TradeEntry, OperationPrimary, domain.ConfidenceHigh)
	require.ErrorIs(t, err, ErrExecutionFrozen)
	require.Equal(t, before, p.Status().TradesToday)

	// Exits still record so open positions can be unwound.
	require.NoError(t, p.RecordTrade(decimal.NewFromFloat(0.002), decimal.NewFromFloat(0.05),
		TradeExit, OperationPrimary, domain.ConfidenceHigh))
	require.Equal(t, before+1, p.Status().TradesToday)
}

func TestOversizedRecordedTradeFreezes(t *testing.T) {
	now := time.Date(2026, 4, 9, 14, 33, 0, 0, time.UTC)
	p := fixedProtocol(10000, now) // retail, unclassified cap 5%

	err := p.RecordTrade(decimal.NewFromFloat(0.001), decimal.NewFromFloat(0.10),
		TradeEntry, OperationPrimary, domain.ConfidenceUnclassified)
	require.ErrorIs(t, err, ErrExecutionFrozen)
	require.True(t, p.Frozen())
}
