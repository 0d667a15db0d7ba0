package allocation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Butchman2000/Trade-Model-Consideration/internal/domain"
)

func testConstraints() Constraints {
	return Constraints{
		LiquidityReserve:        decimal.NewFromFloat(0.10),
		ManualTradingAllocation: decimal.NewFromFloat(0.10),
		MaxBinWeight:            decimal.NewFromFloat(0.06),
		MinBinWeight:            decimal.NewFromFloat(0.025),
		SlippageBudget:          decimal.NewFromFloat(0.05),
	}
}

func newTestGovernor(t *testing.T, c Constraints) *Governor {
	t.Helper()
	g, err := New(nil, c)
	require.NoError(t, err)
	return g
}

func equityMeta(underlying string) domain.BinMetadata {
	return domain.BinMetadata{Strategy: domain.StrategyEquity, Underlying: underlying}
}

func TestNewRejectsMissingConstraints(t *testing.T) {
	_, err := New(nil, Constraints{})
	require.Error(t, err)

	c := testConstraints()
	c.SlippageBudget = decimal.Zero
	_, err = New(nil, c)
	require.Error(t, err)

	c = testConstraints()
	c.MaxBinWeight = decimal.NewFromInt(2)
	_, err = New(nil, c)
	require.Error(t, err)
}

func TestEvaluateScalesDownToReserveCeiling(t *testing.T) {
	c := testConstraints()
	c.MaxBinWeight = decimal.NewFromFloat(0.60) // keep rule 3 out of the way
	g := newTestGovernor(t, c)

	require.NoError(t, g.RegisterBin("bin-a", "model-a", decimal.NewFromFloat(0.50), equityMeta("AAPL")))
	require.NoError(t, g.RegisterBin("bin-b", "model-b", decimal.NewFromFloat(0.45), equityMeta("MSFT")))

	res, err := g.Evaluate()
	require.NoError(t, err)
	require.True(t, res.Scaled)

	total := decimal.Zero
	for _, w := range g.Weights() {
		total = total.Add(w)
	}
	// 0.95 scaled down to the 0.90 investable ceiling.
	require.True(t, total.Sub(decimal.NewFromFloat(0.90)).Abs().LessThan(decimal.NewFromFloat(0.0001)),
		"total %s", total.String())
}

func TestEvaluateClipsOversizedBins(t *testing.T) {
	g := newTestGovernor(t, testConstraints())

	require.NoError(t, g.RegisterBin("bin-a", "model-a", decimal.NewFromFloat(0.08), equityMeta("AAPL")))
	require.NoError(t, g.RegisterBin("bin-b", "model-b", decimal.NewFromFloat(0.04), equityMeta("MSFT")))

	res, err := g.Evaluate()
	require.NoError(t, err)
	require.Equal(t, []string{"bin-a"}, res.ClippedBins)
	require.True(t, g.Weights()["bin-a"].Equal(decimal.NewFromFloat(0.06)))
	require.True(t, g.Weights()["bin-b"].Equal(decimal.NewFromFloat(0.04)))
}

func TestEvaluateRejectsFuturesOverexposure(t *testing.T) {
	g := newTestGovernor(t, testConstraints())

	require.NoError(t, g.RegisterBin("fut-a", "model-f", decimal.NewFromFloat(0.06),
		domain.BinMetadata{Strategy: domain.StrategyFutures, Underlying: "ES"}))

	_, err := g.Evaluate()
	require.ErrorIs(t, err, ErrAllocationViolation)
	require.Contains(t, err.Error(), "futures")
}

func TestEvaluateRejectsMarginOveruse(t *testing.T) {
	c := testConstraints()
	c.MaxBinWeight = decimal.NewFromFloat(0.60)
	g := newTestGovernor(t, c)

	require.NoError(t, g.RegisterBin("bin-a", "model-a", decimal.NewFromFloat(0.45),
		domain.BinMetadata{Strategy: domain.StrategyEquity, Underlying: "AAPL", MarginMult: decimal.NewFromInt(2)}))

	// 0.45 weight at 2x margin uses 0.90 against a 0.80 threshold.
	_, err := g.Evaluate()
	require.ErrorIs(t, err, ErrAllocationViolation)
	require.Contains(t, err.Error(), "margin")
}

func TestEvaluateRejectsSlippageOverBudget(t *testing.T) {
	g := newTestGovernor(t, testConstraints())

	for _, name := range []string{"opt-a", "opt-b", "opt-c", "opt-d"} {
		require.NoError(t, g.RegisterBin(name, "model-"+name, decimal.NewFromFloat(0.01),
			domain.BinMetadata{Strategy: domain.StrategyOptions, Underlying: name}))
	}

	// Four options bins carry 0.06 of slippage risk against a 0.05 budget.
	_, err := g.Evaluate()
	require.ErrorIs(t, err, ErrAllocationViolation)
	require.Contains(t, err.Error(), "slippage")
}

func TestRegisterBinMappingIsWriteOnce(t *testing.T) {
	g := newTestGovernor(t, testConstraints())

	require.NoError(t, g.RegisterBin("bin-a", "model-a", decimal.NewFromFloat(0.04), equityMeta("AAPL")))

	// Re-registering with the same model is a weight update, not a breach.
	require.NoError(t, g.RegisterBin("bin-a", "model-a", decimal.NewFromFloat(0.05), equityMeta("AAPL")))

	err := g.RegisterBin("bin-a", "model-b", decimal.NewFromFloat(0.04), equityMeta("AAPL"))
	require.ErrorIs(t, err, ErrAllocationViolation)
}

func TestRotateBinOncePerDay(t *testing.T) {
	g := newTestGovernor(t, testConstraints())
	today := time.Date(2026, 4, 9, 10, 0, 0, 0, time.UTC)

	require.NoError(t, g.RegisterBin("bin-a", "model-a", decimal.NewFromFloat(0.04), equityMeta("AAPL")))
	require.NoError(t, g.RotateBin("bin-a", today))

	err := g.RotateBin("bin-a", today.Add(3*time.Hour))
	require.ErrorIs(t, err, ErrAllocationViolation)

	// Next day the rotation budget renews.
	require.NoError(t, g.RotateBin("bin-a", today.Add(24*time.Hour)))
}

func TestNightlyRebalanceDeactivatesViolators(t *testing.T) {
	g := newTestGovernor(t, testConstraints())
	// Wall-clock today: the lock must still be in force when checked below.
	today := time.Now().UTC()

	require.NoError(t, g.RegisterBin("bin-a", "model-a", decimal.NewFromFloat(0.04), equityMeta("AAPL")))
	require.NoError(t, g.RegisterBin("bin-b", "model-b", decimal.NewFromFloat(0.04), equityMeta("MSFT")))

	g.MarkViolation("bin-a")
	deactivated := g.NightlyRebalance(today)
	require.Equal(t, []string{"bin-a"}, deactivated)

	// A deactivated bin is locked out of rotation and drops out of the
	// active weight set.
	require.ErrorIs(t, g.RotateBin("bin-a", today), ErrAllocationViolation)
	_, active := g.Weights()["bin-a"]
	require.False(t, active)
	_, active = g.Weights()["bin-b"]
	require.True(t, active)
}

func TestDowngradePersistence(t *testing.T) {
	g := newTestGovernor(t, testConstraints())
	day0 := time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)

	g.SetAlert("bin-a", domain.AlertRed, day0)

	// Red must persist two full days.
	require.ErrorIs(t, g.Downgrade("bin-a", domain.AlertYellow, day0.Add(24*time.Hour)), ErrAllocationViolation)
	require.NoError(t, g.Downgrade("bin-a", domain.AlertYellow, day0.Add(48*time.Hour)))

	alert, ok := g.Alert("bin-a")
	require.True(t, ok)
	require.Equal(t, domain.AlertYellow, alert.Level)

	// Yellow must persist one full day before clearing.
	require.ErrorIs(t, g.Downgrade("bin-a", domain.AlertNone, day0.Add(48*time.Hour)), ErrAllocationViolation)
	require.NoError(t, g.Downgrade("bin-a", domain.AlertNone, day0.Add(72*time.Hour)))
}

func TestUpgradeIsAlwaysAllowed(t *testing.T) {
	g := newTestGovernor(t, testConstraints())
	day0 := time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)

	g.SetAlert("bin-a", domain.AlertYellow, day0)
	require.NoError(t, g.Downgrade("bin-a", domain.AlertRed, day0))

	alert, _ := g.Alert("bin-a")
	require.Equal(t, domain.AlertRed, alert.Level)
}
