package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Factor keys recognised by the multi-factor confirmation gate. Each flag
// comes from an independent upstream system.
const (
	FactorTechnical    = "technical"
	FactorOrderFlow    = "order_flow"
	FactorVolatility   = "volatility"
	FactorBehavioral   = "behavioral"
	FactorMarketRegime = "market_regime"
	FactorMultiDayRSI  = "multi_day_rsi"
	FactorContinuance  = "continuance"
	FactorOptionsSkew  = "options_skew"
)

// FactorKeys lists every recognised confirmation domain.
var FactorKeys = []string{
	FactorTechnical,
	FactorOrderFlow,
	FactorVolatility,
	FactorBehavioral,
	FactorMarketRegime,
	FactorMultiDayRSI,
	FactorContinuance,
	FactorOptionsSkew,
}

// SignalPacket is a proposed trading action submitted by an upstream
// strategy model. It is immutable once submitted and consumed exactly once
// by the coordinator.
type SignalPacket struct {
	ID                  string          `json:"id"`
	Timestamp           time.Time       `json:"timestamp"`
	Symbol              string          `json:"symbol"`
	Inputs              map[string]bool `json:"inputs"`
	ConfidenceTag       string          `json:"confidence_tag"`
	RiskPct             decimal.Decimal `json:"risk_pct"`
	MarginEnabled       bool            `json:"margin_enabled,omitempty"`
	InvolvesShortOption bool            `json:"involves_short_option,omitempty"`
	HoldingDays         int             `json:"holding_days,omitempty"`
	Realized            bool            `json:"realized,omitempty"`
	SplitAdjusted       bool            `json:"split_adjusted,omitempty"`
	SpinoffEvent        bool            `json:"spinoff_event,omitempty"`
}

// NewSignalPacket builds a packet with a fresh id and a UTC timestamp.
func NewSignalPacket(symbol string, inputs map[string]bool, confidenceTag string, riskPct decimal.Decimal) *SignalPacket {
	return &SignalPacket{
		ID:            uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		Symbol:        symbol,
		Inputs:        inputs,
		ConfidenceTag: confidenceTag,
		RiskPct:       riskPct,
	}
}

// AgreementCount returns how many confirmation flags are set.
func (p *SignalPacket) AgreementCount() int {
	count := 0
	for _, v := range p.Inputs {
		if v {
			count++
		}
	}
	return count
}
