package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNewSignalPacket(t *testing.T) {
	p := NewSignalPacket("AAPL", map[string]bool{FactorTechnical: true}, "A_2_X", decimal.NewFromFloat(0.05))

	require.NotEmpty(t, p.ID)
	require.False(t, p.Timestamp.IsZero())
	require.Equal(t, "AAPL", p.Symbol)

	other := NewSignalPacket("AAPL", nil, "", decimal.Zero)
	require.NotEqual(t, p.ID, other.ID)
}

func TestAgreementCount(t *testing.T) {
	p := &SignalPacket{Inputs: map[string]bool{
		FactorTechnical:  true,
		FactorOrderFlow:  true,
		FactorVolatility: false,
		FactorBehavioral: true,
	}}
	require.Equal(t, 3, p.AgreementCount())

	empty := &SignalPacket{}
	require.Equal(t, 0, empty.AgreementCount())
}

func TestHashSignalID(t *testing.T) {
	h := HashSignalID("sig-123")

	require.Len(t, h, 64)
	require.NotEqual(t, "sig-123", h)
	// Deterministic, so the same id always maps to the same log entry.
	require.Equal(t, h, HashSignalID("sig-123"))
	require.NotEqual(t, h, HashSignalID("sig-124"))
}
