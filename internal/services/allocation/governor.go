// Package allocation enforces the capital-apportionment rules over the
// account's strategy bins: reserve and per-bin scaling, bin-count and
// exposure caps, rotation and mapping locks, and warning persistence.
//
// Rules 1-3 are corrective and mutate weights; the remaining rules are
// purely rejecting and leave state untouched. Callers apply corrective
// rules before rejecting ones, in the stated order, because later rules
// assume an already-scaled weight set. Evaluate runs them that way.
package allocation

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Butchman2000/Trade-Model-Consideration/internal/domain"
)

// ErrAllocationViolation covers every rejecting rule: bin count and overlap,
// futures cap, margin threshold, slippage budget, rotation lock, fixed
// mapping breach, and warning-persistence breach. Never silently corrected.
var ErrAllocationViolation = errors.New("allocation violation")

const (
	maxActiveBins   = 25
	overlapBinLimit = 20

	redPersistenceDays    = 2
	yellowPersistenceDays = 1
)

var (
	maxFuturesAlloc       = decimal.NewFromFloat(0.05)
	slippagePerOptionsBin = decimal.NewFromFloat(0.015)
	one                   = decimal.NewFromInt(1)
)

// Constraints are the numeric limits supplied by external configuration.
// Construction of the governor fails when any of them is missing.
type Constraints struct {
	LiquidityReserve        decimal.Decimal
	ManualTradingAllocation decimal.Decimal
	MaxBinWeight            decimal.Decimal
	MinBinWeight            decimal.Decimal
	SlippageBudget          decimal.Decimal
}

// Validate checks that every required constraint is present and sane.
func (c Constraints) Validate() error {
	for _, field := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"liquidity_reserve", c.LiquidityReserve},
		{"manual_trading_allocation", c.ManualTradingAllocation},
		{"max_bin_weight", c.MaxBinWeight},
		{"min_bin_weight", c.MinBinWeight},
		{"slippage_budget", c.SlippageBudget},
	} {
		if field.value.LessThanOrEqual(decimal.Zero) {
			return errors.Errorf("constraint %q is required and must be positive", field.name)
		}
		if field.value.GreaterThanOrEqual(one) {
			return errors.Errorf("constraint %q must be a fraction below 1", field.name)
		}
	}
	return nil
}

// Result reports what the corrective rules did during one evaluation.
type Result struct {
	Scaled      bool
	ScaleFactor decimal.Decimal
	ClippedBins []string
}

// Governor owns the bin-weight mapping and per-bin metadata for one account.
type Governor struct {
	mu sync.Mutex
	l  *zap.Logger

	constraints Constraints
	bins        map[string]*domain.Bin
	assignments map[string]string
	alerts      map[string]domain.BinAlert
	status      map[string]*domain.BinStatus
}

// New creates the governor. It rejects startup when any required constraint
// is absent.
func New(l *zap.Logger, constraints Constraints) (*Governor, error) {
	if l == nil {
		l = zap.NewNop()
	}
	if err := constraints.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid allocation constraints")
	}

	return &Governor{
		l:           l,
		constraints: constraints,
		bins:        make(map[string]*domain.Bin),
		assignments: make(map[string]string),
		alerts:      make(map[string]domain.BinAlert),
		status:      make(map[string]*domain.BinStatus),
	}, nil
}

// RegisterBin assigns a model to a bin. The bin-to-model mapping is
// write-once (rule 10): a bin name, once bound, must keep its model identity
// for the bin's lifetime.
func (g *Governor) RegisterBin(name, model string, weight decimal.Decimal, meta domain.BinMetadata) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if assigned, ok := g.assignments[name]; ok && assigned != model {
		return errors.Wrapf(ErrAllocationViolation,
			"rule 10: bin %q is permanently assigned to model %q, cannot reassign to %q", name, assigned, model)
	}
	if meta.MarginMult.LessThanOrEqual(decimal.Zero) {
		meta.MarginMult = one
	}

	g.assignments[name] = model
	g.bins[name] = &domain.Bin{Name: name, Model: model, Weight: weight, Meta: meta}
	if _, ok := g.status[name]; !ok {
		g.status[name] = &domain.BinStatus{Active: true}
	}

	g.l.Info("bin registered",
		zap.String("bin", name),
		zap.String("model", model),
		zap.String("weight", weight.String()))
	return nil
}

// SetWeight updates a bin's allocation fraction.
func (g *Governor) SetWeight(name string, weight decimal.Decimal) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	bin, ok := g.bins[name]
	if !ok {
		return errors.Errorf("unknown bin %q", name)
	}
	bin.Weight = weight
	return nil
}

// Weights returns a snapshot of the active bin weights.
func (g *Governor) Weights() map[string]decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[string]decimal.Decimal, len(g.bins))
	for name, bin := range g.bins {
		if g.binActive(name) {
			out[name] = bin.Weight
		}
	}
	return out
}

// Evaluate applies the corrective rules and then the rejecting exposure
// rules in fixed order. The first rejecting violation is returned as
// ErrAllocationViolation; corrective adjustments are reported in Result.
func (g *Governor) Evaluate() (Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var res Result
	res.ScaleFactor = one

	// Rules 1-2: reserve headroom, proportional scale-down, never rejects.
	for _, reserve := range []decimal.Decimal{g.constraints.LiquidityReserve, g.constraints.ManualTradingAllocation} {
		if factor, scaled := g.scaleToCeiling(one.Sub(reserve)); scaled {
			res.Scaled = true
			res.ScaleFactor = res.ScaleFactor.Mul(factor)
		}
	}

	// Rule 3: clip any bin above the per-bin maximum. Clipped bins are
	// reported, not silently dropped.
	for _, name := range g.activeBinNames() {
		bin := g.bins[name]
		if bin.Weight.GreaterThan(g.constraints.MaxBinWeight) {
			bin.Weight = g.constraints.MaxBinWeight
			res.ClippedBins = append(res.ClippedBins, name)
		}
	}
	if len(res.ClippedBins) > 0 {
		g.l.Warn("bins clipped to per-bin maximum", zap.Strings("bins", res.ClippedBins))
	}

	if err := g.checkBinCountAndOverlap(); err != nil {
		return res, err
	}
	if err := g.checkFuturesExposure(); err != nil {
		return res, err
	}
	if err := g.checkMarginMultiplier(); err != nil {
		return res, err
	}
	if err := g.checkSlippageBudget(); err != nil {
		return res, err
	}
	if err := g.checkFixedMapping(); err != nil {
		return res, err
	}

	return res, nil
}

// RotateBin requests a strategy rotation for a bin. Rule 8 permits at most
// one rotation per bin per day.
func (g *Governor) RotateBin(name string, today time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	bin, ok := g.bins[name]
	if !ok {
		return errors.Errorf("unknown bin %q", name)
	}
	if !g.binActive(name) {
		return errors.Wrapf(ErrAllocationViolation, "rule 9: bin %q is locked out for the day", name)
	}
	if sameDay(bin.Meta.LastRotation, today) {
		return errors.Wrapf(ErrAllocationViolation, "rule 8: bin %q already rotated today", name)
	}

	bin.Meta.LastRotation = today
	return nil
}

// MarkViolation flags a bin for the nightly rebalance sweep.
func (g *Governor) MarkViolation(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if st, ok := g.status[name]; ok {
		st.ViolationToday = true
	}
}

// NightlyRebalance is the external rule-9 trigger. Every bin flagged with a
// same-day violation is deactivated with a lock lasting until the next day.
// Returns the names of deactivated bins.
func (g *Governor) NightlyRebalance(today time.Time) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var deactivated []string
	for name, st := range g.status {
		if st.ViolationToday {
			st.Active = false
			st.LockUntil = dayStart(today).Add(24 * time.Hour)
			st.ViolationToday = false
			deactivated = append(deactivated, name)
		}
	}
	sort.Strings(deactivated)

	if len(deactivated) > 0 {
		g.l.Warn("nightly rebalance deactivated bins", zap.Strings("bins", deactivated))
	}
	return deactivated
}

// SetAlert raises or replaces a bin's warning color.
func (g *Governor) SetAlert(name string, level domain.AlertLevel, since time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.alerts[name] = domain.BinAlert{Level: level, Since: since}
}

// Downgrade honors a warning-color downgrade only after the minimum
// persistence has elapsed (rule 11: red two days, yellow one day).
func (g *Governor) Downgrade(name string, target domain.AlertLevel, today time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	alert, ok := g.alerts[name]
	if !ok || target >= alert.Level {
		g.alerts[name] = domain.BinAlert{Level: target, Since: today}
		return nil
	}

	required := 0
	switch alert.Level {
	case domain.AlertRed:
		required = redPersistenceDays
	case domain.AlertYellow:
		required = yellowPersistenceDays
	}

	elapsed := int(dayStart(today).Sub(dayStart(alert.Since)).Hours() / 24)
	if elapsed < required {
		return errors.Wrapf(ErrAllocationViolation,
			"rule 11: bin %q must remain %s for %d day(s)", name, alert.Level.String(), required)
	}

	g.alerts[name] = domain.BinAlert{Level: target, Since: today}
	return nil
}

// Alert returns the current warning state of a bin.
func (g *Governor) Alert(name string) (domain.BinAlert, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	a, ok := g.alerts[name]
	return a, ok
}

func (g *Governor) scaleToCeiling(maxTotal decimal.Decimal) (decimal.Decimal, bool) {
	total := g.totalWeight()
	if total.LessThanOrEqual(maxTotal) || total.IsZero() {
		return one, false
	}

	factor := maxTotal.Div(total)
	for _, name := range g.activeBinNames() {
		bin := g.bins[name]
		bin.Weight = bin.Weight.Mul(factor)
	}

	g.l.Warn("total allocation above ceiling, weights scaled down",
		zap.String("ceiling", maxTotal.String()),
		zap.String("factor", factor.String()))
	return factor, true
}

func (g *Governor) checkBinCountAndOverlap() error {
	names := g.activeBinNames()
	if len(names) > maxActiveBins {
		return errors.Wrapf(ErrAllocationViolation, "rule 4: too many bins active (%d > %d)", len(names), maxActiveBins)
	}

	underlyings := make(map[string]struct{}, len(names))
	for _, name := range names {
		if u := g.bins[name].Meta.Underlying; u != "" {
			underlyings[u] = struct{}{}
		}
	}
	if len(underlyings) < len(names) && len(names) > overlapBinLimit {
		return errors.Wrapf(ErrAllocationViolation, "rule 4: bin overlap exceeds threshold (%d bins, %d unique underlyings)",
			len(names), len(underlyings))
	}
	return nil
}

func (g *Governor) checkFuturesExposure() error {
	total := decimal.Zero
	for _, name := range g.activeBinNames() {
		bin := g.bins[name]
		if bin.Meta.Strategy == domain.StrategyFutures {
			total = total.Add(bin.Weight)
		}
	}
	if total.GreaterThan(maxFuturesAlloc) {
		return errors.Wrapf(ErrAllocationViolation,
			"rule 5: futures allocation %s exceeds maximum permitted exposure %s", total.String(), maxFuturesAlloc.String())
	}
	return nil
}

func (g *Governor) checkMarginMultiplier() error {
	threshold := one.Sub(g.constraints.LiquidityReserve).Sub(g.constraints.ManualTradingAllocation)

	used := decimal.Zero
	for _, name := range g.activeBinNames() {
		bin := g.bins[name]
		used = used.Add(bin.Weight.Mul(bin.Meta.MarginMult))
	}
	if used.GreaterThan(threshold) {
		return errors.Wrapf(ErrAllocationViolation,
			"rule 6: estimated margin usage %s exceeds threshold %s", used.String(), threshold.String())
	}
	return nil
}

func (g *Governor) checkSlippageBudget() error {
	slip := decimal.Zero
	for _, name := range g.activeBinNames() {
		if g.bins[name].Meta.Strategy == domain.StrategyOptions {
			slip = slip.Add(slippagePerOptionsBin)
		}
	}
	if slip.GreaterThan(g.constraints.SlippageBudget) {
		return errors.Wrapf(ErrAllocationViolation,
			"rule 7: slippage risk %s exceeds budget %s", slip.String(), g.constraints.SlippageBudget.String())
	}
	return nil
}

func (g *Governor) checkFixedMapping() error {
	for name, bin := range g.bins {
		expected, ok := g.assignments[name]
		if !ok || bin.Model != expected {
			return errors.Wrapf(ErrAllocationViolation,
				"rule 10: bin %q assigned to unexpected model %q", name, bin.Model)
		}
	}
	return nil
}

func (g *Governor) totalWeight() decimal.Decimal {
	total := decimal.Zero
	for _, name := range g.activeBinNames() {
		total = total.Add(g.bins[name].Weight)
	}
	return total
}

func (g *Governor) activeBinNames() []string {
	names := make([]string, 0, len(g.bins))
	for name := range g.bins {
		if g.binActive(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (g *Governor) binActive(name string) bool {
	st, ok := g.status[name]
	if !ok {
		return true
	}
	if !st.Active && !st.LockUntil.IsZero() && time.Now().After(st.LockUntil) {
		st.Active = true
		st.LockUntil = time.Time{}
	}
	return st.Active
}

func sameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func dayStart(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
