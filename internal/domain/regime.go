package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Regime is the current volatility-stress classification of the market.
type Regime string

const (
	// RegimeNormal means no filter triggered; the system may trade.
	RegimeNormal Regime = "normal"
	// RegimeCoolingTriggered means a yellow-light anomaly was detected and a
	// rebound test is pending.
	RegimeCoolingTriggered Regime = "cooling_triggered"
	// RegimeCooldownActive means a rebound was confirmed and trades are
	// suppressed during the cool-off window.
	RegimeCooldownActive Regime = "cooldown_active"
	// RegimeRedWatchTriggered means a large drop was observed and the filter
	// is watching for a dangerous rebound.
	RegimeRedWatchTriggered Regime = "red_watch_triggered"
	// RegimeRedLightActive means a volatility spike was confirmed and trading
	// is halted for multiple days.
	RegimeRedLightActive Regime = "red_light_active"
	// RegimeRevertToStrict means a rebound after a yellow anomaly was
	// confirmed; the filter enters cooldown.
	RegimeRevertToStrict Regime = "revert_to_strict"
)

// BlocksIntake reports whether the regime suppresses new signal intake.
// Watch states are observational and do not block.
func (r Regime) BlocksIntake() bool {
	switch r {
	case RegimeRevertToStrict, RegimeCooldownActive, RegimeRedLightActive:
		return true
	default:
		return false
	}
}

// RegimeState is the mutable per-instrument state of the volatility regime
// filter. Zero time values mean "not set". The filter mutates it once per
// evaluated trading day; callers that need regimes to survive restarts must
// persist it themselves.
type RegimeState struct {
	CooldownUntil   time.Time       `json:"cooldown_until,omitempty"`
	ObservationDay  time.Time       `json:"observation_day,omitempty"`
	RedLightUntil   time.Time       `json:"red_light_until,omitempty"`
	RedCount        int             `json:"red_count,omitempty"`
	ObserveRedOn    time.Time       `json:"observe_red_on,omitempty"`
	RedWatch        bool            `json:"red_watch,omitempty"`
	VolatilityFloor decimal.Decimal `json:"volatility_floor,omitempty"`
}
