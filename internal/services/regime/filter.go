// Package regime implements the state-aware volatility filter gating signal
// generation. It watches for large drops and subsequent rebounds in the
// volatility index and manages yellow-light and red-light regimes with
// cooldown enforcement. All state is passed in explicitly so one filter can
// serve many instruments.
package regime

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Butchman2000/Trade-Model-Consideration/internal/domain"
)

const (
	trailingWindow = 21 * 24 * time.Hour
	yellowCooldown = 72 * time.Hour

	redCooldownFirst  = 72 * time.Hour
	redCooldownRepeat = 144 * time.Hour
)

var (
	yellowLevel   = decimal.NewFromInt(30)
	yellowDropPct = decimal.NewFromFloat(0.08)
	redDropPct    = decimal.NewFromFloat(0.07)

	yellowReboundPct = decimal.NewFromFloat(0.045)
	redReboundPct    = decimal.NewFromFloat(0.04)

	// Absolute ceiling on the red-regime exit floor.
	floorCeiling = decimal.NewFromInt(38)
)

// Filter evaluates whether volatility behavior triggers yellow or red regime
// changes. Every path returns a regime label and mutates the passed state;
// there are no error returns. A day missing from the series yields
// RegimeNormal (fail-open by policy): callers re-check the regime on every
// decision point.
type Filter struct {
	l *zap.Logger
}

// NewFilter creates a regime filter.
func NewFilter(l *zap.Logger) *Filter {
	if l == nil {
		l = zap.NewNop()
	}
	return &Filter{l: l}
}

// Evaluate applies the current day's volatility data to the regime state.
// Red-light logic takes full precedence over yellow and cooldown logic.
func (f *Filter) Evaluate(current time.Time, series *Series, state *domain.RegimeState) domain.Regime {
	day := Day(current)

	todayValue, ok := series.Value(day)
	if !ok {
		return domain.RegimeNormal
	}

	if !state.RedLightUntil.IsZero() && !day.After(Day(state.RedLightUntil)) {
		return f.evaluateRedRegime(day, todayValue, series, state)
	}

	if !state.CooldownUntil.IsZero() && !day.After(Day(state.CooldownUntil)) {
		return domain.RegimeCooldownActive
	}

	// An armed observation whose day passed without data never resolves on
	// its own; expire it before looking at fresh triggers.
	expireStaleWatches(day, state)

	_, prevValue, ok := series.Prev(day)
	if !ok {
		return domain.RegimeNormal
	}

	dropPct := prevValue.Sub(todayValue).Div(prevValue)

	if prevValue.GreaterThan(yellowLevel) && dropPct.GreaterThan(yellowDropPct) {
		state.ObservationDay = day.Add(24 * time.Hour)
		f.l.Info("yellow-light anomaly detected, arming rebound observation",
			zap.Time("observation_day", state.ObservationDay),
			zap.String("drop_pct", dropPct.String()))
		return domain.RegimeCoolingTriggered
	}

	if dropPct.GreaterThan(redDropPct) {
		state.ObserveRedOn = day.Add(24 * time.Hour)
		state.RedWatch = true
		f.l.Info("large volatility drop, arming red watch",
			zap.Time("observe_red_on", state.ObserveRedOn),
			zap.String("drop_pct", dropPct.String()))
		return domain.RegimeRedWatchTriggered
	}

	reboundPct := todayValue.Sub(prevValue).Div(prevValue)

	if !state.ObservationDay.IsZero() && Day(state.ObservationDay).Equal(day) {
		state.ObservationDay = time.Time{}
		if reboundPct.GreaterThanOrEqual(yellowReboundPct) {
			state.CooldownUntil = day.Add(yellowCooldown)
			f.l.Warn("rebound confirmed after yellow anomaly, entering cooldown",
				zap.Time("cooldown_until", state.CooldownUntil))
			return domain.RegimeRevertToStrict
		}
		return domain.RegimeNormal
	}

	if state.RedWatch && !state.ObserveRedOn.IsZero() && Day(state.ObserveRedOn).Equal(day) {
		state.RedWatch = false
		state.ObserveRedOn = time.Time{}
		if reboundPct.GreaterThanOrEqual(redReboundPct) {
			state.RedCount++
			cooldown := redCooldownFirst
			if state.RedCount > 1 {
				cooldown = redCooldownRepeat
			}
			state.RedLightUntil = day.Add(cooldown)
			f.l.Warn("rebound after large drop, escalating to red regime",
				zap.Int("red_count", state.RedCount),
				zap.Time("red_light_until", state.RedLightUntil))
			return domain.RegimeRedLightActive
		}
		return domain.RegimeNormal
	}

	return domain.RegimeNormal
}

// evaluateRedRegime decides whether the red regime may be exited. The exit
// floor is the 3-week trailing low capped at an absolute ceiling; volatility
// dropping below it clears the red state.
func (f *Filter) evaluateRedRegime(day time.Time, todayValue decimal.Decimal, series *Series, state *domain.RegimeState) domain.Regime {
	// Trailing low over prior days only; including today would make the
	// strict floor comparison unsatisfiable.
	threeWeekLow, ok := series.Min(day.Add(-trailingWindow), day.Add(-24*time.Hour))
	if !ok {
		threeWeekLow = todayValue
	}

	floor := threeWeekLow
	if floor.GreaterThan(floorCeiling) {
		floor = floorCeiling
	}

	if todayValue.LessThan(floor) {
		state.RedLightUntil = time.Time{}
		state.VolatilityFloor = decimal.Decimal{}
		f.l.Info("volatility recovered below floor, exiting red regime",
			zap.String("floor", floor.String()),
			zap.String("value", todayValue.String()))
		return domain.RegimeNormal
	}

	state.VolatilityFloor = floor
	return domain.RegimeRedLightActive
}

func expireStaleWatches(day time.Time, state *domain.RegimeState) {
	if !state.ObservationDay.IsZero() && day.After(Day(state.ObservationDay)) {
		state.ObservationDay = time.Time{}
	}
	if !state.ObserveRedOn.IsZero() && day.After(Day(state.ObserveRedOn)) {
		state.ObserveRedOn = time.Time{}
		state.RedWatch = false
	}
}
