package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Verdict is the terminal outcome of one coordinator run.
type Verdict string

const (
	VerdictApproved Verdict = "APPROVED"
	VerdictRejected Verdict = "REJECTED"
)

// Margin-risk classifications for the (margin_enabled, involves_short_option)
// combinations. The wording is part of the decision record contract.
const (
	MarginRiskLowCashEquity  = "Low (cash equity margin)"
	MarginRiskModerateToHigh = "Moderate to High (requires margin coverage on short leg)"
	MarginRiskIneligible     = "Ineligible: naked short option in cash-only account"
	MarginRiskLow            = "Low"
)

// Decision is the immutable record emitted for every processed signal.
// FinalDecision is the only field a downstream caller needs to gate order
// placement.
type Decision struct {
	SignalID      string          `json:"signal_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Symbol        string          `json:"symbol"`
	Inputs        map[string]bool `json:"inputs"`
	ConfidenceTag string          `json:"confidence_tag"`
	RiskPct       decimal.Decimal `json:"risk_pct"`
	Suitable      bool            `json:"suitable"`
	Permitted     bool            `json:"permitted"`
	TaxNotes      []string        `json:"tax_notes"`
	MarginRisk    string          `json:"margin_risk"`
	SplitAdjusted bool            `json:"split_adjusted"`
	SpinoffEvent  bool            `json:"spinoff_event"`
	FinalDecision Verdict         `json:"final_decision"`
	Reason        string          `json:"reason"`
}

// String returns a human-readable string representation.
func (d *Decision) String() string {
	return fmt.Sprintf("%s %s: %s (%s)", d.SignalID, d.Symbol, d.FinalDecision, d.Reason)
}
