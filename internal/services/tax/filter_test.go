package tax

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUnrealizedPositionHasNoTaxableEvent(t *testing.T) {
	f := NewFilter()

	notes, err := f.EvaluateTradeTaxNotes("AAPL", time.Now(), 10, false)
	require.NoError(t, err)
	require.Equal(t, []string{"unrealized position: no taxable event"}, notes)
}

func TestShortTermWithWashSaleWindow(t *testing.T) {
	f := NewFilter()

	notes, err := f.EvaluateTradeTaxNotes("AAPL", time.Now(), 10, true)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	require.Contains(t, notes[0], "short-term")
	require.Contains(t, notes[1], "wash-sale")
	require.Contains(t, notes[1], "AAPL")
}

func TestShortTermOutsideWashSaleWindow(t *testing.T) {
	f := NewFilter()

	notes, err := f.EvaluateTradeTaxNotes("AAPL", time.Now(), 90, true)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Contains(t, notes[0], "short-term")
}

func TestLongTermTreatment(t *testing.T) {
	f := NewFilter()

	notes, err := f.EvaluateTradeTaxNotes("AAPL", time.Now(), 400, true)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Contains(t, notes[0], "long-term")
}
