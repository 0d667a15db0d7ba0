package coordinator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type splitEntry struct {
	Symbol string          `json:"symbol"`
	Date   time.Time       `json:"date"`
	Factor decimal.Decimal `json:"factor"`
}

type spinoffEntry struct {
	Parent string    `json:"parent"`
	Child  string    `json:"child"`
	Date   time.Time `json:"date"`
}

// RegisterSymbolChange tracks symbol renames (e.g. FB -> META).
func (c *Coordinator) RegisterSymbolChange(oldSymbol, newSymbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.symbolRegistry[oldSymbol] = newSymbol
}

// CurrentSymbol resolves a possibly renamed symbol to its canonical form.
func (c *Coordinator) CurrentSymbol(symbol string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSymbolLocked(symbol)
}

func (c *Coordinator) currentSymbolLocked(symbol string) string {
	if current, ok := c.symbolRegistry[symbol]; ok {
		return current
	}
	return symbol
}

// RegisterSplit logs a share split for historical normalization.
func (c *Coordinator) RegisterSplit(symbol string, date time.Time, factor decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.splits = append(c.splits, splitEntry{Symbol: symbol, Date: date, Factor: factor})
}

// SplitFactor returns the most recent split factor recorded for the symbol
// at or before the given date, or 1 when none applies.
func (c *Coordinator) SplitFactor(symbol string, date time.Time) decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	factor := decimal.NewFromInt(1)
	var latest time.Time
	for _, entry := range c.splits {
		if entry.Symbol != symbol || entry.Date.After(date) {
			continue
		}
		if latest.IsZero() || entry.Date.After(latest) {
			latest = entry.Date
			factor = entry.Factor
		}
	}
	return factor
}

// RegisterSpinoff logs an asset spin-off.
func (c *Coordinator) RegisterSpinoff(parent, child string, date time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spinoffs = append(c.spinoffs, spinoffEntry{Parent: parent, Child: child, Date: date})
}

// SpinoffsFor returns the known spin-off assets of a parent symbol.
func (c *Coordinator) SpinoffsFor(parent string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var children []string
	for _, entry := range c.spinoffs {
		if entry.Parent == parent {
			children = append(children, entry.Child)
		}
	}
	sort.Strings(children)
	return children
}
