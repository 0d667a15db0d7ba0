// Package coordinator is the composition root of the governance pipeline.
// It sequences the ingress gates, the isolation system, and the risk
// protocol over each incoming signal packet, annotates the outcome with tax
// and margin context, and emits an immutable decision record.
package coordinator

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Butchman2000/Trade-Model-Consideration/internal/domain"
	"github.com/Butchman2000/Trade-Model-Consideration/internal/services/ingress"
)

// ErrAnomalyThrottleActive marks the quiet period after a rejected or
// unsafe event. Transient: the caller may retry after the cooldown.
var ErrAnomalyThrottleActive = errors.New("anomaly throttle active")

// DefaultAnomalyCooldown is the quiet period enforced between trades during
// integrity faults.
const DefaultAnomalyCooldown = 90 * time.Second

// DefaultRecentDecisions bounds the recent-decision export.
const DefaultRecentDecisions = 5

// SignalGate is the confirmation gate consulted per signal (the isolation
// system).
type SignalGate interface {
	AllowTrade(p *domain.SignalPacket) (bool, error)
}

// RiskValidator is the pre-execution risk check (the risk protocol).
type RiskValidator interface {
	ValidateTradeRequest(confidence domain.ConfidenceTier, positionSizePct decimal.Decimal) error
}

// TaxFilter evaluates trade tax notes. Pure function contract: the
// coordinator assumes no side effects.
type TaxFilter interface {
	EvaluateTradeTaxNotes(symbol string, tradeDate time.Time, holdingDays int, realized bool) ([]string, error)
}

// RegimeSource reports the current volatility regime. Optional; when absent
// the coordinator assumes normal conditions.
type RegimeSource interface {
	Current(now time.Time) domain.Regime
}

// DecisionAppender persists decision records. Appends may fail transiently;
// the coordinator logs and keeps the in-memory record, it never retries.
type DecisionAppender interface {
	AppendDecision(d domain.Decision) error
}

// Coordinator pushes each packet through the gates in fixed order,
// short-circuiting on first rejection. ProcessSignal is a critical section:
// one signal at a time per account.
type Coordinator struct {
	mu sync.Mutex
	l  *zap.Logger

	sis       SignalGate
	rep       RiskValidator
	taxFilter TaxFilter
	limiter   *ingress.RateLimiter
	sanitizer *ingress.Sanitizer
	sink      DecisionAppender
	regimes   RegimeSource

	decisions      []domain.Decision
	symbolRegistry map[string]string
	splits         []splitEntry
	spinoffs       []spinoffEntry

	anomalyCooldown time.Duration
	lastUnsafeAt    time.Time

	now func() time.Time
}

// New creates the coordinator. A non-positive anomalyCooldown selects the
// default; sink may be nil when persistence is handled elsewhere.
func New(l *zap.Logger, sis SignalGate, rep RiskValidator, taxFilter TaxFilter,
	limiter *ingress.RateLimiter, sanitizer *ingress.Sanitizer, sink DecisionAppender,
	anomalyCooldown time.Duration) *Coordinator {
	if l == nil {
		l = zap.NewNop()
	}
	if anomalyCooldown <= 0 {
		anomalyCooldown = DefaultAnomalyCooldown
	}
	return &Coordinator{
		l:               l,
		sis:             sis,
		rep:             rep,
		taxFilter:       taxFilter,
		limiter:         limiter,
		sanitizer:       sanitizer,
		sink:            sink,
		symbolRegistry:  make(map[string]string),
		anomalyCooldown: anomalyCooldown,
		now:             time.Now,
	}
}

// SetRegimeSource attaches a volatility regime gate. Must be called before
// the first ProcessSignal.
func (c *Coordinator) SetRegimeSource(r RegimeSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regimes = r
}

// ProcessSignal runs the full decision pipeline for one packet. It returns
// an error for ingress-level drops (throttle, rate limit, sanitizer) and a
// decision record for everything that reached the gates. Once started, a
// run always reaches a terminal decision; there is no cancellation.
func (c *Coordinator) ProcessSignal(p *domain.SignalPacket) (domain.Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if !c.lastUnsafeAt.IsZero() {
		if remaining := c.anomalyCooldown - now.Sub(c.lastUnsafeAt); remaining > 0 {
			return domain.Decision{}, errors.Wrapf(ErrAnomalyThrottleActive,
				"must wait %s", remaining.Round(time.Millisecond))
		}
	}

	if !c.limiter.Allow(now) {
		c.l.Warn("signal dropped by rate limiter")
		return domain.Decision{}, errors.Wrap(ingress.ErrRateLimitExceeded, "try again later")
	}

	if err := c.sanitizer.Sanitize(p); err != nil {
		c.l.Warn("signal packet rejected", zap.Error(err))
		return domain.Decision{}, err
	}

	confidenceTag := p.ConfidenceTag
	if confidenceTag == "" {
		confidenceTag = "unclassified"
	}
	riskPct := p.RiskPct
	if riskPct.IsZero() {
		riskPct = decimal.NewFromFloat(0.01)
	}

	decision := domain.Decision{
		SignalID:      p.ID,
		Timestamp:     p.Timestamp,
		Symbol:        c.currentSymbolLocked(p.Symbol),
		Inputs:        p.Inputs,
		ConfidenceTag: confidenceTag,
		RiskPct:       riskPct,
		TaxNotes:      []string{},
		SplitAdjusted: p.SplitAdjusted,
		SpinoffEvent:  p.SpinoffEvent,
		FinalDecision: domain.VerdictRejected,
	}

	if c.regimes != nil {
		if regime := c.regimes.Current(now); regime.BlocksIntake() {
			decision.Reason = "volatility regime " + string(regime) + " suppresses new signals"
			c.appendDecision(decision)
			c.l.Warn("signal rejected by volatility regime",
				zap.String("signal_id", decision.SignalID),
				zap.String("regime", string(regime)))
			return decision, nil
		}
	}

	suitable, err := c.sis.AllowTrade(p)
	if err != nil {
		// Confirmation logging is mandatory; without it there is no
		// auditable outcome to act on.
		return domain.Decision{}, err
	}
	decision.Suitable = suitable

	if !suitable {
		decision.Reason = "isolation system rejected signal"
		c.lastUnsafeAt = now
		c.appendDecision(decision)
		return decision, nil
	}

	if err := c.rep.ValidateTradeRequest(domain.ParseConfidenceTier(confidenceTag), riskPct); err != nil {
		decision.Reason = err.Error()
	} else {
		decision.Permitted = true
		decision.Reason = "trade permitted"
	}

	notes, err := c.taxFilter.EvaluateTradeTaxNotes(decision.Symbol, p.Timestamp, p.HoldingDays, p.Realized)
	if err != nil {
		// Tax annotation is advisory; the decision stands without it.
		c.l.Error("tax filter failed", zap.Error(err), zap.String("symbol", decision.Symbol))
	} else {
		decision.TaxNotes = notes
	}

	decision.MarginRisk = classifyMarginRisk(p.MarginEnabled, p.InvolvesShortOption)

	if decision.Suitable && decision.Permitted {
		decision.FinalDecision = domain.VerdictApproved
	}

	c.appendDecision(decision)

	c.l.Info("signal processed",
		zap.String("signal_id", decision.SignalID),
		zap.String("symbol", decision.Symbol),
		zap.String("final_decision", string(decision.FinalDecision)),
		zap.String("reason", decision.Reason))

	return decision, nil
}

// RecentDecisions returns the last n trade evaluations. A non-positive n
// selects the default.
func (c *Coordinator) RecentDecisions(n int) []domain.Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n <= 0 {
		n = DefaultRecentDecisions
	}
	if n > len(c.decisions) {
		n = len(c.decisions)
	}

	out := make([]domain.Decision, n)
	copy(out, c.decisions[len(c.decisions)-n:])
	return out
}

// DecisionByID looks up the most recent decision for a signal id.
func (c *Coordinator) DecisionByID(signalID string) (domain.Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.decisions) - 1; i >= 0; i-- {
		if c.decisions[i].SignalID == signalID {
			return c.decisions[i], true
		}
	}
	return domain.Decision{}, false
}

func (c *Coordinator) appendDecision(d domain.Decision) {
	c.decisions = append(c.decisions, d)
	if c.sink == nil {
		return
	}
	if err := c.sink.AppendDecision(d); err != nil {
		c.l.Error("failed to persist decision",
			zap.Error(err),
			zap.String("signal_id", d.SignalID))
	}
}

// classifyMarginRisk maps trade style and account permission into one of
// four fixed labels.
func classifyMarginRisk(marginEnabled, involvesShortOption bool) string {
	switch {
	case marginEnabled && !involvesShortOption:
		return domain.MarginRiskLowCashEquity
	case marginEnabled && involvesShortOption:
		return domain.MarginRiskModerateToHigh
	case !marginEnabled && involvesShortOption:
		return domain.MarginRiskIneligible
	default:
		return domain.MarginRiskLow
	}
}
