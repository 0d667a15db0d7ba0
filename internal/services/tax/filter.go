// Package tax carries a basic holding-period implementation of the tax
// filter contract consumed by the coordinator.
package tax

import (
	"time"
)

const longTermHoldingDays = 365

// Filter annotates trades with tax-consequence notes. Pure: no state, no
// side effects.
type Filter struct{}

// NewFilter creates the filter.
func NewFilter() *Filter {
	return &Filter{}
}

// EvaluateTradeTaxNotes returns advisory notes for a trade.
func (f *Filter) EvaluateTradeTaxNotes(symbol string, tradeDate time.Time, holdingDays int, realized bool) ([]string, error) {
	var notes []string

	if !realized {
		notes = append(notes, "unrealized position: no taxable event")
		return notes, nil
	}

	if holdingDays < longTermHoldingDays {
		notes = append(notes, "short-term treatment: gain/loss taxed as ordinary income")
	} else {
		notes = append(notes, "long-term treatment: preferential capital gains rate applies")
	}

	if holdingDays <= 30 {
		notes = append(notes, "wash-sale window: repurchase of "+symbol+" within 30 days may defer the loss")
	}

	return notes, nil
}
