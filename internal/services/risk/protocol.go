// Package risk defines the risk boundaries, failure thresholds, and
// emergency logic governing trade execution and capital exposure: capital
// tiering, confidence-scaled position caps, a trade-frequency lock, and
// drawdown circuit breakers.
package risk

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Butchman2000/Trade-Model-Consideration/internal/domain"
)

var (
	// ErrExecutionFrozen is the sticky circuit-breaker rejection. Only
	// ResetDailyRisk clears it.
	ErrExecutionFrozen = errors.New("execution frozen")
	// ErrRiskDenied marks a size check failure that does not freeze.
	ErrRiskDenied = errors.New("position size exceeds scaled limit")
)

// TradeType classifies the direction of a recorded trade.
type TradeType string

const (
	TradeEntry TradeType = "entry"
	TradeExit  TradeType = "exit"
)

// OperationType distinguishes primary entries from exits and leg
// adjustments, which stay exempt from the frequency lock.
type OperationType string

const (
	OperationPrimary    OperationType = "primary"
	OperationAdjustment OperationType = "adjustment"
)

const tradeWindow = time.Hour

var (
	maxDailyDrawdownPct = decimal.NewFromFloat(0.04)
	maxTradeDrawdownPct = decimal.NewFromFloat(0.015)
	throttleTriggerPct  = decimal.NewFromFloat(0.025)

	// ThrottleScaling is the advisory sizing reduction callers apply while
	// ShouldThrottle reports true.
	ThrottleScaling = decimal.NewFromFloat(0.5)
)

// Protocol holds the per-account risk state. The tier is derived once from
// equity at construction and never changes.
type Protocol struct {
	mu sync.Mutex
	l  *zap.Logger

	equity           decimal.Decimal
	tier             domain.Tier
	maxPositionPct   decimal.Decimal
	maxTradesPerHour int

	dailyLossTotal  decimal.Decimal
	tradeHistory    []decimal.Decimal
	tradeTimestamps []time.Time
	lastTradeTime   time.Time

	frozen          bool
	throttleMode    bool
	lockedDueToFreq bool

	now func() time.Time
}

// Status is a read-only snapshot of the protocol state.
type Status struct {
	AccountEquity   decimal.Decimal `json:"account_equity"`
	CapitalTier     string          `json:"capital_tier"`
	DailyLossTotal  decimal.Decimal `json:"daily_loss_total"`
	TradesToday     int             `json:"trades_today"`
	TradesLastHour  int             `json:"trades_last_hour"`
	ExecutionFrozen bool            `json:"execution_frozen"`
	ThrottleMode    bool            `json:"throttle_mode"`
	LockedDueToFreq bool            `json:"locked_due_to_freq"`
}

// New creates the protocol for an account. Capital scaling rules:
// low tier 15% max position and 8 entries/hour, retail 20% and 6/hour,
// pro 25% and 4/hour.
func New(l *zap.Logger, equity decimal.Decimal) *Protocol {
	if l == nil {
		l = zap.NewNop()
	}

	p := &Protocol{
		l:      l,
		equity: equity,
		tier:   domain.TierForEquity(equity),
		now:    time.Now,
	}

	switch p.tier {
	case domain.TierLow:
		p.maxPositionPct = decimal.NewFromFloat(0.15)
		p.maxTradesPerHour = 8
	case domain.TierRetail:
		p.maxPositionPct = decimal.NewFromFloat(0.20)
		p.maxTradesPerHour = 6
	default:
		p.maxPositionPct = decimal.NewFromFloat(0.25)
		p.maxTradesPerHour = 4
	}

	return p
}

// Tier returns the capital tier assigned at construction.
func (p *Protocol) Tier() domain.Tier {
	return p.tier
}

// ValidateTradeRequest is the pure pre-execution check used by the
// coordinator. It denies immediately when frozen, otherwise compares the
// requested size against tier limit scaled by confidence.
func (p *Protocol) ValidateTradeRequest(confidence domain.ConfidenceTier, positionSizePct decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frozen {
		return errors.Wrap(ErrExecutionFrozen, "trade denied")
	}

	scaledLimit := p.scaledLimit(confidence)
	if positionSizePct.GreaterThan(scaledLimit) {
		return errors.Wrapf(ErrRiskDenied, "position %s exceeds scaled limit %s for confidence %q",
			positionSizePct.String(), scaledLimit.String(), confidence.String())
	}

	return nil
}

// RecordTrade is the only state-mutating entry point. Primary entries
// maintain the sliding one-hour window and freeze on frequency or size
// breaches; every recorded trade accumulates losses and can trip the
// per-trade and daily drawdown breakers.
func (p *Protocol) RecordTrade(pnlPct, positionSizePct decimal.Decimal, tradeType TradeType, operationType OperationType, confidence domain.ConfidenceTier) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	primaryEntry := tradeType == TradeEntry && operationType == OperationPrimary

	if p.frozen && primaryEntry {
		return errors.Wrap(ErrExecutionFrozen, "no further primary entries allowed")
	}

	now := p.now()

	if primaryEntry {
		p.tradeTimestamps = append(p.tradeTimestamps, now)
		kept := p.tradeTimestamps[:0]
		for _, ts := range p.tradeTimestamps {
			if now.Sub(ts) < tradeWindow {
				kept = append(kept, ts)
			}
		}
		p.tradeTimestamps = kept

		if len(p.tradeTimestamps) > p.maxTradesPerHour {
			p.frozen = true
			p.lockedDueToFreq = true
			p.l.Warn("entry frequency exceeded, freezing execution",
				zap.Int("trades_last_hour", len(p.tradeTimestamps)),
				zap.Int("max_trades_per_hour", p.maxTradesPerHour))
			return errors.Wrap(ErrExecutionFrozen, "entry frequency exceeded, new primary entries blocked")
		}

		scaledLimit := p.scaledLimit(confidence)
		if positionSizePct.GreaterThan(scaledLimit) {
			p.frozen = true
			p.l.Warn("oversized trade recorded, freezing execution",
				zap.String("position_pct", positionSizePct.String()),
				zap.String("scaled_limit", scaledLimit.String()))
			return errors.Wrapf(ErrExecutionFrozen, "trade size %s too large for confidence %q",
				positionSizePct.String(), confidence.String())
		}
	}

	p.tradeHistory = append(p.tradeHistory, pnlPct)
	if pnlPct.IsNegative() {
		p.dailyLossTotal = p.dailyLossTotal.Add(pnlPct)
	}
	p.lastTradeTime = now

	if pnlPct.LessThan(maxTradeDrawdownPct.Neg()) {
		p.frozen = true
		p.l.Warn("per-trade loss limit exceeded, freezing execution",
			zap.String("pnl_pct", pnlPct.String()))
		return errors.Wrapf(ErrExecutionFrozen, "trade loss %s exceeded limit", pnlPct.String())
	}

	if p.dailyLossTotal.Abs().GreaterThan(maxDailyDrawdownPct) {
		p.frozen = true
		p.l.Warn("daily loss limit exceeded, freezing execution",
			zap.String("daily_loss_total", p.dailyLossTotal.String()))
		return errors.Wrapf(ErrExecutionFrozen, "daily loss %s exceeded limit", p.dailyLossTotal.String())
	}

	if p.dailyLossTotal.Abs().GreaterThan(throttleTriggerPct) {
		p.throttleMode = true
		p.l.Info("daily loss crossed throttle trigger, reduced sizing advised",
			zap.String("daily_loss_total", p.dailyLossTotal.String()))
	}

	return nil
}

// ShouldThrottle reports whether callers are expected to reduce sizing
// without fully halting. Frozen takes precedence over throttled.
func (p *Protocol) ShouldThrottle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.throttleMode && !p.frozen
}

// Frozen reports the sticky circuit-breaker state.
func (p *Protocol) Frozen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frozen
}

// ResetDailyRisk clears loss and trade history and re-enables execution.
// It is the only way out of frozen, throttled, and frequency-locked states
// and is intended to run exactly once per trading day.
func (p *Protocol) ResetDailyRisk() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.dailyLossTotal = decimal.Zero
	p.tradeHistory = nil
	p.tradeTimestamps = nil
	p.frozen = false
	p.throttleMode = false
	p.lockedDueToFreq = false

	p.l.Info("risk counters reset, execution re-enabled",
		zap.String("tier", p.tier.String()))
}

// Status returns a snapshot of the protocol state.
func (p *Protocol) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Status{
		AccountEquity:   p.equity,
		CapitalTier:     p.tier.String(),
		DailyLossTotal:  p.dailyLossTotal,
		TradesToday:     len(p.tradeHistory),
		TradesLastHour:  len(p.tradeTimestamps),
		ExecutionFrozen: p.frozen,
		ThrottleMode:    p.throttleMode,
		LockedDueToFreq: p.lockedDueToFreq,
	}
}

func (p *Protocol) scaledLimit(confidence domain.ConfidenceTier) decimal.Decimal {
	return p.maxPositionPct.Mul(confidence.Multiplier())
}
