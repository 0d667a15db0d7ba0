package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Strategy types a bin can carry. Futures and options bins are subject to
// dedicated exposure rules.
const (
	StrategyEquity  = "equity"
	StrategyOptions = "options"
	StrategyFutures = "futures"
)

// BinMetadata describes the strategy occupying a bin.
type BinMetadata struct {
	Strategy     string          `json:"strategy"`
	Underlying   string          `json:"underlying"`
	MarginMult   decimal.Decimal `json:"margin_mult"`
	LastRotation time.Time       `json:"last_rotation,omitempty"`
}

// Bin is a fixed capital slot permanently bound to one trading strategy
// identity. Name and Model never change after assignment; only the weight
// and metadata are mutable.
type Bin struct {
	Name   string          `json:"name"`
	Model  string          `json:"model"`
	Weight decimal.Decimal `json:"weight"`
	Meta   BinMetadata     `json:"meta"`
}

//go:generate stringer -type=AlertLevel

// AlertLevel is a bin's warning color.
type AlertLevel int

const (
	AlertNone AlertLevel = iota
	AlertYellow
	AlertRed
)

func (a AlertLevel) String() string {
	switch a {
	case AlertRed:
		return "red"
	case AlertYellow:
		return "yellow"
	default:
		return "none"
	}
}

// BinAlert tracks when a warning color was set so minimum persistence can be
// enforced before a downgrade is honored.
type BinAlert struct {
	Level AlertLevel `json:"level"`
	Since time.Time  `json:"since"`
}

// BinStatus carries per-bin activation state used by the nightly rebalance.
type BinStatus struct {
	Active         bool      `json:"active"`
	ViolationToday bool      `json:"violation_today"`
	LockUntil      time.Time `json:"lock_until,omitempty"`
}
