package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestTierForEquity(t *testing.T) {
	require.Equal(t, TierLow, TierForEquity(decimal.NewFromInt(500)))
	require.Equal(t, TierLow, TierForEquity(decimal.NewFromFloat(1999.99)))
	require.Equal(t, TierRetail, TierForEquity(decimal.NewFromInt(2000)))
	require.Equal(t, TierRetail, TierForEquity(decimal.NewFromInt(24999)))
	require.Equal(t, TierPro, TierForEquity(decimal.NewFromInt(25000)))
	require.Equal(t, TierPro, TierForEquity(decimal.NewFromInt(1000000)))
}

func TestParseConfidenceTier(t *testing.T) {
	cases := []struct {
		tag      string
		expected ConfidenceTier
	}{
		{"A_2_X", ConfidenceHigh},
		{"high_conviction", ConfidenceHigh},
		{"B_1", ConfidenceMedium},
		{"medium", ConfidenceMedium},
		{"med_iv", ConfidenceMedium},
		{"C_3", ConfidenceLow},
		{"HiRSI.LowFloat.x,y,z", ConfidenceLow},
		{"garbage", ConfidenceUnclassified},
		{"", ConfidenceUnclassified},
	}

	for _, tc := range cases {
		require.Equal(t, tc.expected, ParseConfidenceTier(tc.tag), "tag %q", tc.tag)
	}
}

func TestConfidenceMultiplier(t *testing.T) {
	require.True(t, ConfidenceHigh.Multiplier().Equal(decimal.NewFromInt(1)))
	require.True(t, ConfidenceMedium.Multiplier().Equal(decimal.NewFromFloat(0.65)))
	require.True(t, ConfidenceLow.Multiplier().Equal(decimal.NewFromFloat(0.4)))
	// Unknown tags never get more sizing than the lowest named bracket.
	require.True(t, ConfidenceUnclassified.Multiplier().Equal(decimal.NewFromFloat(0.25)))
	require.True(t, ConfidenceUnclassified.Multiplier().LessThan(ConfidenceLow.Multiplier()))
}
