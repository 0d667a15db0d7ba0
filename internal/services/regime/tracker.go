package regime

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Butchman2000/Trade-Model-Consideration/internal/domain"
)

// Tracker owns the volatility series and regime state for one account and
// serializes filter evaluations over them.
type Tracker struct {
	mu     sync.Mutex
	filter *Filter
	series *Series
	state  domain.RegimeState
}

// NewTracker creates a tracker with empty history.
func NewTracker(l *zap.Logger) *Tracker {
	return &Tracker{
		filter: NewFilter(l),
		series: NewSeries(),
	}
}

// AddClose records a daily volatility close and returns the regime after
// re-evaluation.
func (t *Tracker) AddClose(day time.Time, value decimal.Decimal) domain.Regime {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.series.Add(day, value)
	return t.filter.Evaluate(day, t.series, &t.state)
}

// Current evaluates the regime as of now without adding data.
func (t *Tracker) Current(now time.Time) domain.Regime {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.filter.Evaluate(now, t.series, &t.state)
}
