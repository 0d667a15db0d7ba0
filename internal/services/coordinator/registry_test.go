package coordinator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Butchman2000/Trade-Model-Consideration/internal/services/ingress"
)

func registryCoordinator() *Coordinator {
	return New(nil, &fakeGate{allow: true}, &fakeRisk{}, &fakeTax{},
		ingress.NewRateLimiter(0, 0), ingress.NewSanitizer(0), nil, 0)
}

func TestSymbolChangeResolution(t *testing.T) {
	c := registryCoordinator()

	c.RegisterSymbolChange("FB", "META")
	require.Equal(t, "META", c.CurrentSymbol("FB"))
	require.Equal(t, "AAPL", c.CurrentSymbol("AAPL"))

	// Decisions carry the canonical symbol, not the submitted one.
	p := freshPacket()
	p.Symbol = "FB"
	decision, err := c.ProcessSignal(p)
	require.NoError(t, err)
	require.Equal(t, "META", decision.Symbol)
}

func TestSplitFactorPicksMostRecent(t *testing.T) {
	c := registryCoordinator()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	c.RegisterSplit("NVDA", base, decimal.NewFromInt(4))
	c.RegisterSplit("NVDA", base.AddDate(1, 0, 0), decimal.NewFromInt(10))

	require.True(t, c.SplitFactor("NVDA", base.AddDate(0, 6, 0)).Equal(decimal.NewFromInt(4)))
	require.True(t, c.SplitFactor("NVDA", base.AddDate(2, 0, 0)).Equal(decimal.NewFromInt(10)))

	// Before any split, and for unknown symbols, the factor is 1.
	require.True(t, c.SplitFactor("NVDA", base.AddDate(-1, 0, 0)).Equal(decimal.NewFromInt(1)))
	require.True(t, c.SplitFactor("XYZ", base).Equal(decimal.NewFromInt(1)))
}

func TestSpinoffsForSorted(t *testing.T) {
	c := registryCoordinator()
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	c.RegisterSpinoff("GE", "GEV", date)
	c.RegisterSpinoff("GE", "GEHC", date)
	c.RegisterSpinoff("MMM", "SOLV", date)

	require.Equal(t, []string{"GEHC", "GEV"}, c.SpinoffsFor("GE"))
	require.Empty(t, c.SpinoffsFor("AAPL"))
}
