package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

//go:generate stringer -type=Tier

// Tier is the capital-size risk bracket of an account, fixed at protocol
// construction from equity.
type Tier int

const (
	// TierLow covers accounts below $2,000 equity.
	TierLow Tier = iota
	// TierRetail covers accounts below $25,000 equity.
	TierRetail
	// TierPro covers everything above.
	TierPro
)

func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierRetail:
		return "retail"
	default:
		return "pro"
	}
}

// TierForEquity derives the capital tier from account equity.
func TierForEquity(equity decimal.Decimal) Tier {
	switch {
	case equity.LessThan(decimal.NewFromInt(2000)):
		return TierLow
	case equity.LessThan(decimal.NewFromInt(25000)):
		return TierRetail
	default:
		return TierPro
	}
}

// ConfidenceTier is the enumerated confidence bracket of a signal. Upstream
// sources still emit free-form classification tags; ParseConfidenceTier maps
// them once at the edge so the risk protocol only ever sees the enum.
type ConfidenceTier int

const (
	// ConfidenceUnclassified is the fail-small default for unrecognised tags.
	ConfidenceUnclassified ConfidenceTier = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
)

func (c ConfidenceTier) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "unclassified"
	}
}

// Multiplier returns the position-size scaling for the confidence bracket.
func (c ConfidenceTier) Multiplier() decimal.Decimal {
	switch c {
	case ConfidenceHigh:
		return decimal.NewFromInt(1)
	case ConfidenceMedium:
		return decimal.NewFromFloat(0.65)
	case ConfidenceLow:
		return decimal.NewFromFloat(0.4)
	default:
		return decimal.NewFromFloat(0.25)
	}
}

// ParseConfidenceTier maps a free-form classification tag to a tier.
// Tags may carry source metadata (signal family, IV level, float flag), so
// matching is by marker substring, e.g. "A_2_X" or "HiRSI.LowFloat.x,y,z".
func ParseConfidenceTier(tag string) ConfidenceTier {
	t := strings.ToLower(tag)
	switch {
	case strings.Contains(t, "a_") || strings.Contains(t, "high"):
		return ConfidenceHigh
	case strings.Contains(t, "b_") || strings.Contains(t, "med"):
		return ConfidenceMedium
	case strings.Contains(t, "c_") || strings.Contains(t, "low"):
		return ConfidenceLow
	default:
		return ConfidenceUnclassified
	}
}
