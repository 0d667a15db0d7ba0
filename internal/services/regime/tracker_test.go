package regime

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Butchman2000/Trade-Model-Consideration/internal/domain"
)

func TestTrackerCooldownBlocksIntake(t *testing.T) {
	tr := NewTracker(nil)

	require.Equal(t, domain.RegimeNormal, tr.AddClose(day(0), decimal.NewFromFloat(35)))
	require.Equal(t, domain.RegimeCoolingTriggered, tr.AddClose(day(1), decimal.NewFromFloat(31)))
	require.Equal(t, domain.RegimeRevertToStrict, tr.AddClose(day(2), decimal.NewFromFloat(32.5)))

	// Re-querying inside the cooldown window reports the active cooldown.
	current := tr.Current(day(2).Add(6 * time.Hour))
	require.Equal(t, domain.RegimeCooldownActive, current)
	require.True(t, current.BlocksIntake())

	require.Equal(t, domain.RegimeCooldownActive, tr.AddClose(day(3), decimal.NewFromFloat(32)))
}

func TestTrackerWithoutDataIsNormal(t *testing.T) {
	tr := NewTracker(nil)

	current := tr.Current(day(0))
	require.Equal(t, domain.RegimeNormal, current)
	require.False(t, current.BlocksIntake())
}

func TestBlocksIntake(t *testing.T) {
	require.True(t, domain.RegimeRevertToStrict.BlocksIntake())
	require.True(t, domain.RegimeCooldownActive.BlocksIntake())
	require.True(t, domain.RegimeRedLightActive.BlocksIntake())

	require.False(t, domain.RegimeNormal.BlocksIntake())
	require.False(t, domain.RegimeCoolingTriggered.BlocksIntake())
	require.False(t, domain.RegimeRedWatchTriggered.BlocksIntake())
}
